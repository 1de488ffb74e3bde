package controller

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hifz_backend/internal/model"
	"hifz_backend/internal/syncengine"
	"hifz_backend/internal/util"
)

type syncPending = syncengine.Pending

// maxWait bounds how long ?wait=true holds a request for remote delivery.
const maxWait = 30 * time.Second

func principal(ctx *gin.Context) (model.Principal, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return model.Principal{}, false
	}
	return claims.Principal(), true
}

func bind(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		util.BadRequest(ctx, err.Error())
		return false
	}
	return true
}

// parseDate reads an optional YYYY-MM-DD field. An empty value yields the
// zero time, which the services replace with the current time.
func parseDate(ctx *gin.Context, s string, loc *time.Location) (time.Time, bool) {
	date, err := util.ParseDate(s, loc, time.Time{})
	if err != nil {
		util.BadRequest(ctx, "invalid date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

// respond answers a mutation. The change is already visible locally; with
// ?wait=true the request also waits until the remote store has it.
// Otherwise an undelivered change is answered with 202.
func respond(ctx *gin.Context, data interface{}, pending *syncengine.Pending) {
	respondWith(ctx, data, pending, util.Success)
}

func respondCreated(ctx *gin.Context, data interface{}, pending *syncengine.Pending) {
	respondWith(ctx, data, pending, util.Created)
}

func respondWith(ctx *gin.Context, data interface{}, pending *syncengine.Pending, ok func(*gin.Context, interface{})) {
	if pending == nil {
		ok(ctx, data)
		return
	}
	if wait, _ := strconv.ParseBool(ctx.Query("wait")); wait {
		wctx, cancel := context.WithTimeout(ctx.Request.Context(), maxWait)
		defer cancel()
		if err := pending.Wait(wctx); err != nil {
			util.HandleError(ctx, err)
			return
		}
		ok(ctx, data)
		return
	}
	select {
	case <-pending.Done():
		if err := pending.Err(); err != nil {
			util.HandleError(ctx, err)
			return
		}
		ok(ctx, data)
	default:
		util.Accepted(ctx, data)
	}
}
