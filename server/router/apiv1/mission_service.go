package apiv1

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nexuslabs/nexus/server/auth"
	"github.com/nexuslabs/nexus/server/enricher"
	"github.com/nexuslabs/nexus/server/retriever"
	"github.com/nexuslabs/nexus/store"
)

type missionResponse struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Status    string  `json:"status"`
	Report    *string `json:"report"`
	CreatedTs int64   `json:"createdTs"`
	UpdatedTs int64   `json:"updatedTs"`
}

type missionDetailResponse struct {
	missionResponse
	ReportHTML *string        `json:"reportHtml,omitempty"`
	Notes      []noteResponse `json:"notes"`
}

type listMissionsResponse struct {
	Missions   []missionResponse    `json:"missions"`
	Pagination retriever.Pagination `json:"pagination"`
}

func convertMission(mission *store.Mission) missionResponse {
	return missionResponse{
		ID:        mission.UID,
		Title:     mission.Title,
		Status:    string(mission.Status),
		Report:    mission.Report,
		CreatedTs: mission.CreatedTs,
		UpdatedTs: mission.UpdatedTs,
	}
}

type createMissionRequest struct {
	Title string `json:"title"`
}

func (s *APIV1Service) createMission(c echo.Context) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "you must log in")
	}

	var body createMissionRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	mission, err := s.Enricher.CreateMission(c.Request().Context(), userID, body.Title)
	if err != nil {
		if errors.Is(err, enricher.ErrEmptyTitle) {
			return echo.NewHTTPError(http.StatusBadRequest, "title required")
		}
		slog.Error("failed to create mission", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "creation failed")
	}
	return c.JSON(http.StatusOK, convertMission(mission))
}

func (s *APIV1Service) listMissions(c echo.Context) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "you must log in")
	}

	opts := retriever.ListOptions{
		Search: c.QueryParam("search"),
		Sort:   c.QueryParam("sort"),
		Status: c.QueryParam("status"),
	}
	if opts.Status != "" && opts.Status != "All" {
		if err := store.MissionStatus(opts.Status).Validate(); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
		}
	}
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil {
		opts.Page = page
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		opts.Limit = limit
	}

	result, err := s.Retriever.List(c.Request().Context(), userID, opts)
	if err != nil {
		slog.Error("failed to list missions", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "database search failed")
	}

	missions := make([]missionResponse, 0, len(result.Missions))
	for _, mission := range result.Missions {
		missions = append(missions, convertMission(mission))
	}
	return c.JSON(http.StatusOK, listMissionsResponse{
		Missions:   missions,
		Pagination: result.Pagination,
	})
}

func (s *APIV1Service) getMission(c echo.Context) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "you must log in")
	}

	detail, err := s.Retriever.GetOne(c.Request().Context(), userID, c.Param("uid"))
	if err != nil {
		if errors.Is(err, retriever.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		slog.Error("failed to get mission", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "lookup failed")
	}

	resp := missionDetailResponse{
		missionResponse: convertMission(detail.Mission),
		Notes:           make([]noteResponse, 0, len(detail.Notes)),
	}
	for _, note := range detail.Notes {
		resp.Notes = append(resp.Notes, convertNote(note, detail.Mission.UID))
	}

	if c.QueryParam("format") == "html" && detail.Mission.Report != nil {
		rendered, err := s.Markdown.RenderHTML(*detail.Mission.Report)
		if err != nil {
			slog.Warn("failed to render report html", "mission", detail.Mission.UID, "error", err)
		} else {
			resp.ReportHTML = &rendered
		}
	}
	return c.JSON(http.StatusOK, resp)
}

type updateMissionRequest struct {
	Title string `json:"title"`
}

func (s *APIV1Service) updateMission(c echo.Context) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "you must log in")
	}

	var body updateMissionRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	mission, err := s.findMission(c, userID)
	if err != nil {
		return err
	}

	updated, err := s.Store.UpdateMissionTitle(c.Request().Context(), &store.UpdateMissionTitle{
		ID:        mission.ID,
		CreatorID: userID,
		Title:     body.Title,
	})
	if err != nil {
		slog.Error("failed to update mission", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "update failed")
	}
	return c.JSON(http.StatusOK, convertMission(updated))
}

func (s *APIV1Service) deleteMission(c echo.Context) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "you must log in")
	}

	mission, err := s.findMission(c, userID)
	if err != nil {
		return err
	}

	if err := s.Store.DeleteMission(c.Request().Context(), &store.DeleteMission{
		ID:        mission.ID,
		CreatorID: userID,
	}); err != nil {
		slog.Error("failed to delete mission", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "delete failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "deleted"})
}

// findMission resolves the :uid path param to the caller's mission.
func (s *APIV1Service) findMission(c echo.Context, userID int32) (*store.Mission, error) {
	uid := c.Param("uid")
	mission, err := s.Store.GetMission(c.Request().Context(), &store.FindMission{UID: &uid, CreatorID: &userID})
	if err != nil {
		slog.Error("failed to find mission", "error", err)
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "lookup failed")
	}
	if mission == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return mission, nil
}
