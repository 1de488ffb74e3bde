package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"hifz_backend/internal/model"
	"hifz_backend/internal/service"
	"hifz_backend/internal/util"
)

type LogController struct {
	School   *service.SchoolService
	Progress *service.ProgressService
}

func NewLogController(school *service.SchoolService, progress *service.ProgressService) *LogController {
	return &LogController{School: school, Progress: progress}
}

// LogRequest carries a daily log. Date is a calendar day in the school
// timezone; an empty date means today.
type LogRequest struct {
	Date       string                   `json:"date"`
	IsAbsent   bool                     `json:"isAbsent"`
	Attendance []model.AttendanceRecord `json:"attendance"`
	Jadeed     *model.QuranAssignment   `json:"jadeed"`
	Murajaah   []model.QuranAssignment  `json:"murajaah"`
	Notes      string                   `json:"notes"`
}

func (c *LogController) log(ctx *gin.Context, id string) (model.DailyLog, bool) {
	var req LogRequest
	if !bind(ctx, &req) {
		return model.DailyLog{}, false
	}
	date, ok := parseDate(ctx, req.Date, c.Progress.Location())
	if !ok {
		return model.DailyLog{}, false
	}
	return model.DailyLog{
		ID:         id,
		Date:       date,
		IsAbsent:   req.IsAbsent,
		Attendance: req.Attendance,
		Jadeed:     req.Jadeed,
		Murajaah:   req.Murajaah,
		Notes:      req.Notes,
	}, true
}

// List returns the student's logs, optionally capped by ?limit.
func (c *LogController) List(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	dash, err := c.Progress.Student(p, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	logs := append([]model.DailyLog(nil), dash.Student.Logs...)
	if limit := util.ParseIntDefault(ctx.Query("limit"), 0); limit > 0 && limit < len(logs) {
		logs = logs[:limit]
	}
	util.Success(ctx, logs)
}

// Create godoc
// @Summary Record a daily log
// @Description With byDate=true an ordinary session replaces the one already recorded that day
// @Tags logs
// @Accept json
// @Produce json
// @Param id path string true "student id"
// @Param byDate query bool false "replace the session of the same day"
// @Param body body LogRequest true "log"
// @Success 201 {object} util.Response{data=model.DailyLog}
// @Router /api/students/{id}/logs [post]
func (c *LogController) Create(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	l, ok := c.log(ctx, "")
	if !ok {
		return
	}
	byDate, _ := strconv.ParseBool(ctx.Query("byDate"))
	saved, pending, err := c.School.SaveDailyLog(ctx.Request.Context(), p, ctx.Param("id"), l, byDate)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respondCreated(ctx, saved, pending)
}

func (c *LogController) Update(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	studentID, logID := ctx.Param("id"), ctx.Param("logId")
	st, found := c.School.Snapshot().Students.Get(studentID)
	if !found || st.LogIndex(logID) < 0 {
		util.NotFound(ctx)
		return
	}
	l, ok := c.log(ctx, logID)
	if !ok {
		return
	}
	// adab content is only changed through the archive
	if prev := st.Logs[st.LogIndex(logID)]; prev.IsAdab {
		l.IsAdab = true
		l.AdabSession = prev.AdabSession
	}
	saved, pending, err := c.School.SaveDailyLog(ctx.Request.Context(), p, studentID, l, false)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, saved, pending)
}

func (c *LogController) Delete(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	pending, err := c.School.DeleteDailyLog(ctx.Request.Context(), p, ctx.Param("id"), ctx.Param("logId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, nil, pending)
}

type SeenRequest struct {
	LogIDs []string `json:"logIds"`
}

// MarkSeen flags logs as read by the parent. An empty list marks every
// unseen log of the student.
func (c *LogController) MarkSeen(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req SeenRequest
	if ctx.Request.ContentLength > 0 && !bind(ctx, &req) {
		return
	}
	if len(req.LogIDs) == 0 {
		st, _ := c.School.Snapshot().Students.Get(ctx.Param("id"))
		for _, l := range st.Logs {
			if !l.SeenByParent {
				req.LogIDs = append(req.LogIDs, l.ID)
			}
		}
	}
	pending, err := c.School.MarkLogsSeen(ctx.Request.Context(), p, ctx.Param("id"), req.LogIDs)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	respond(ctx, nil, pending)
}
