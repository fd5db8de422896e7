package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	Name     string   `json:"name"`
	Size     int      `json:"size"`
	Capacity int      `json:"capacity"`
	Members  []string `json:"members"`
}

// RoomsResponse lists every configured room.
type RoomsResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

// ListRooms handles listing rooms with their occupancy.
// GET /api/rooms
func (h *APIHandlers) ListRooms(c *gin.Context) {
	infos := h.reg.Rooms()
	out := make([]RoomResponse, 0, len(infos))
	for _, info := range infos {
		members := info.Members
		if members == nil {
			members = []string{}
		}
		out = append(out, RoomResponse{
			Name:     info.Name,
			Size:     len(members),
			Capacity: info.Capacity,
			Members:  members,
		})
	}
	c.JSON(http.StatusOK, RoomsResponse{Rooms: out})
}
