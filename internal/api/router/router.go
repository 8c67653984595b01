package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"defense-scheduler/config"
	"defense-scheduler/internal/api/handler"
	"defense-scheduler/internal/api/middleware"
	"defense-scheduler/internal/model"
	"defense-scheduler/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时不限流（Redis 未启用）；db 为 nil 时健康检查不探测数据库
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter middleware.RateLimiter, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	handler.RegisterValidators()

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				c.JSON(503, gin.H{"status": "degraded", "db": "unreachable"})
				return
			}
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	admin := middleware.RoleAuth(model.RoleAdmin)
	evaluator := middleware.RoleAuth(model.RoleAdmin, model.RoleTeacher)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	v1.Use(middleware.RateLimit(limiter, cfg.Server.RateLimit, cfg.Server.RateLimitWindow))
	{
		// 学期策略
		semesters := v1.Group("/semesters")
		{
			semesters.GET("", h.Semester.ListSemesters)
			semesters.GET("/current", h.Semester.GetCurrentSemester)
			semesters.GET("/:id", h.Semester.GetSemester)
			semesters.POST("", admin, h.Semester.CreateSemester)
			semesters.PATCH("/:id", admin, h.Semester.UpdateSemester)
			semesters.DELETE("/:id", admin, h.Semester.DeleteSemester)
		}

		// 方向分组
		tracks := v1.Group("/tracks")
		{
			tracks.GET("", h.Track.ListTracks)
			tracks.GET("/:id", h.Track.GetTrack)
			tracks.POST("", admin, h.Track.CreateTrack)
			tracks.PATCH("/:id", admin, h.Track.UpdateTrack)
			tracks.DELETE("/:id", admin, h.Track.DeleteTrack)
		}

		// 答辩时段
		slots := v1.Group("/slots")
		{
			slots.GET("", h.Slot.ListSlots)
			slots.GET("/:id", h.Slot.GetSlot)
			slots.POST("", admin, h.Slot.CreateSlot)
			slots.PATCH("/:id", admin, h.Slot.UpdateSlot)
			slots.DELETE("/:id", admin, h.Slot.DeleteSlot)
		}

		// 答辩放置
		tribunals := v1.Group("/tribunals")
		{
			tribunals.GET("", h.Tribunal.ListTribunals)
			tribunals.GET("/:id", h.Tribunal.GetTribunal)
			tribunals.GET("/:id/committee", h.Committee.ListMembers)
			tribunals.GET("/:id/staffing", h.Committee.GetStaffing)
			tribunals.POST("", admin, h.Tribunal.PlaceTribunal)
			tribunals.PATCH("/:id", admin, h.Tribunal.UpdateTribunal)
			tribunals.POST("/:id/move", admin, h.Tribunal.MoveTribunal)
			tribunals.DELETE("/:id", admin, h.Tribunal.RemoveTribunal)
		}

		// 委员会分配（教师本人认领由 Service 层鉴权）
		committees := v1.Group("/committees")
		{
			committees.POST("", evaluator, h.Committee.AssignRole)
			committees.DELETE("/:id", evaluator, h.Committee.Unassign)
		}

		// 可用性查询
		availability := v1.Group("/availability")
		{
			availability.GET("/slots", h.Availability.AvailableSlots)
			availability.GET("/tribunals", evaluator, h.Availability.AvailableTribunals)
			availability.GET("/ready", h.Availability.ReadyTribunals)
		}

		// 导出
		export := v1.Group("/export")
		{
			export.GET("/schedule", admin, h.Export.ExportSchedule)
			export.GET("/calendar", h.Export.ExportCalendar)
		}
	}

	return r
}
