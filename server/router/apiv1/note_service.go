package apiv1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nexuslabs/nexus/server/auth"
	"github.com/nexuslabs/nexus/store"
)

type noteResponse struct {
	ID        string `json:"id"`
	MissionID string `json:"missionId"`
	Content   string `json:"content"`
	CreatedTs int64  `json:"createdTs"`
	UpdatedTs int64  `json:"updatedTs"`
}

func convertNote(note *store.Note, missionUID string) noteResponse {
	return noteResponse{
		ID:        note.UID,
		MissionID: missionUID,
		Content:   note.Content,
		CreatedTs: note.CreatedTs,
		UpdatedTs: note.UpdatedTs,
	}
}

type createNoteRequest struct {
	MissionID string `json:"missionId"`
	Content   string `json:"content"`
}

func (s *APIV1Service) createNote(c echo.Context) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "you must log in")
	}

	var body createNoteRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if body.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content required")
	}

	mission, err := s.Store.GetMission(c.Request().Context(), &store.FindMission{UID: &body.MissionID, CreatorID: &userID})
	if err != nil {
		slog.Error("failed to find mission for note", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "lookup failed")
	}
	if mission == nil {
		return echo.NewHTTPError(http.StatusNotFound, "mission not found")
	}

	note, err := s.Store.CreateNote(c.Request().Context(), mission.ID, body.Content)
	if err != nil {
		slog.Error("failed to create note", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "creation failed")
	}

	return c.JSON(http.StatusOK, convertNote(note, mission.UID))
}

type updateNoteRequest struct {
	Content string `json:"content"`
}

func (s *APIV1Service) updateNote(c echo.Context) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "you must log in")
	}

	var body updateNoteRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	note, mission, err := s.findNote(c, userID)
	if err != nil {
		return err
	}

	updated, err := s.Store.UpdateNote(c.Request().Context(), &store.UpdateNote{
		ID:      note.ID,
		Content: body.Content,
	})
	if err != nil {
		slog.Error("failed to update note", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "update failed")
	}
	return c.JSON(http.StatusOK, convertNote(updated, mission.UID))
}

func (s *APIV1Service) deleteNote(c echo.Context) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "you must log in")
	}

	note, _, err := s.findNote(c, userID)
	if err != nil {
		return err
	}

	if err := s.Store.DeleteNote(c.Request().Context(), &store.DeleteNote{ID: note.ID}); err != nil {
		slog.Error("failed to delete note", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "delete failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "deleted"})
}

// findNote resolves the :uid path param to a note owned via the caller's
// mission. Other users' notes are indistinguishable from missing ones.
func (s *APIV1Service) findNote(c echo.Context, userID int32) (*store.Note, *store.Mission, error) {
	uid := c.Param("uid")
	note, err := s.Store.GetNote(c.Request().Context(), &store.FindNote{UID: &uid})
	if err != nil {
		slog.Error("failed to find note", "error", err)
		return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, "lookup failed")
	}
	if note == nil {
		return nil, nil, echo.NewHTTPError(http.StatusNotFound, "not found")
	}

	mission, err := s.Store.GetMission(c.Request().Context(), &store.FindMission{ID: &note.MissionID, CreatorID: &userID})
	if err != nil {
		slog.Error("failed to check note ownership", "error", err)
		return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, "lookup failed")
	}
	if mission == nil {
		return nil, nil, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return note, mission, nil
}
