package api

import (
	"log/slog"
	"net/http"
)

type coursesResponse struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

type coursesHandler struct {
	system QueryService
	logger *slog.Logger
}

// courses reports corpus statistics for the frontend.
func (h *coursesHandler) courses(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.system.CourseAnalytics(r.Context())
	if err != nil {
		h.logger.Error("course analytics failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analytics_failed", "failed to load course statistics")
		return
	}

	titles := analytics.CourseTitles
	if titles == nil {
		titles = []string{}
	}
	writeJSON(w, http.StatusOK, coursesResponse{
		TotalCourses: analytics.TotalCourses,
		CourseTitles: titles,
	})
}
