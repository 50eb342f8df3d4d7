package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/middleware"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
)

// RouterDeps carries everything Register needs to mount the API.
type RouterDeps struct {
	Auth        *AuthHandler
	Courses     *CourseHandler
	Disciplines *DisciplineHandler
	Classes     *ClassHandler
	Teachers    *TeacherHandler
	Directors   *DirectorHandler
	Users       *UserHandler
	Schedulings *SchedulingHandler

	Tokens middleware.TokenValidator
	Audit  middleware.AuditWriter
	Logger *zap.Logger
}

// Register mounts the versioned API under group.
func Register(group *gin.RouterGroup, deps RouterDeps) {
	auth := group.Group("/auth")
	auth.POST("/magic-link", deps.Auth.RequestMagicLink)
	auth.POST("/magic-link/verify", deps.Auth.VerifyMagicLink)
	auth.POST("/google", deps.Auth.Google)

	secured := group.Group("")
	secured.Use(middleware.JWT(deps.Tokens))
	secured.GET("/auth/me", deps.Auth.Me)

	can := func(resource, action string) gin.HandlerFunc {
		return middleware.RequirePermission(models.Perm(resource, action))
	}
	audited := func(resource string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, deps.Logger, models.AuditActionDelete, resource)
	}

	courses := secured.Group("/courses")
	courses.GET("", can(models.ResourceCourses, models.ActionRead), deps.Courses.List)
	courses.GET("/:id", can(models.ResourceCourses, models.ActionRead), deps.Courses.Get)
	courses.GET("/:id/semesters", can(models.ResourceCourses, models.ActionRead), deps.Courses.Semesters)
	courses.POST("", can(models.ResourceCourses, models.ActionCreate), deps.Courses.Create)
	courses.PUT("/:id", can(models.ResourceCourses, models.ActionUpdate), deps.Courses.Update)
	courses.DELETE("/:id", can(models.ResourceCourses, models.ActionDelete), audited("course"), deps.Courses.Delete)

	disciplines := secured.Group("/disciplines")
	disciplines.GET("", can(models.ResourceSubjects, models.ActionRead), deps.Disciplines.List)
	disciplines.GET("/:id", can(models.ResourceSubjects, models.ActionRead), deps.Disciplines.Get)
	disciplines.POST("", can(models.ResourceSubjects, models.ActionCreate), deps.Disciplines.Create)
	disciplines.PUT("/:id", can(models.ResourceSubjects, models.ActionUpdate), deps.Disciplines.Update)
	disciplines.DELETE("/:id", can(models.ResourceSubjects, models.ActionDelete), audited("discipline"), deps.Disciplines.Delete)

	classes := secured.Group("/classes")
	classes.GET("", can(models.ResourceCourses, models.ActionRead), deps.Classes.List)
	classes.GET("/:id", can(models.ResourceCourses, models.ActionRead), deps.Classes.Get)
	classes.POST("", can(models.ResourceCourses, models.ActionCreate), deps.Classes.Create)
	classes.PUT("/:id", can(models.ResourceCourses, models.ActionUpdate), deps.Classes.Update)
	classes.DELETE("/:id", can(models.ResourceCourses, models.ActionDelete), audited("class"), deps.Classes.Delete)

	teachers := secured.Group("/teachers")
	teachers.GET("", can(models.ResourceSubjects, models.ActionRead), deps.Teachers.List)
	teachers.GET("/:id", can(models.ResourceSubjects, models.ActionRead), deps.Teachers.Get)
	teachers.POST("", can(models.ResourceSubjects, models.ActionCreate), deps.Teachers.Create)
	teachers.PUT("/:id", can(models.ResourceSubjects, models.ActionUpdate), deps.Teachers.Update)
	teachers.DELETE("/:id", can(models.ResourceSubjects, models.ActionDelete), audited("teacher"), deps.Teachers.Delete)

	directors := secured.Group("/directors")
	directors.GET("", can(models.ResourceUsers, models.ActionRead), deps.Directors.List)
	directors.GET("/:id", can(models.ResourceUsers, models.ActionRead), deps.Directors.Get)
	directors.POST("", can(models.ResourceUsers, models.ActionCreate), deps.Directors.Create)
	directors.PUT("/:id", can(models.ResourceUsers, models.ActionUpdate), deps.Directors.Update)
	directors.DELETE("/:id", can(models.ResourceUsers, models.ActionDelete), audited("director"), deps.Directors.Delete)

	users := secured.Group("/users")
	users.GET("", can(models.ResourceUsers, models.ActionRead), deps.Users.List)
	users.GET("/:id", can(models.ResourceUsers, models.ActionRead), deps.Users.Get)
	users.PUT("/:id/roles", can(models.ResourceUsers, models.ActionUpdate), deps.Users.SetRoles)
	users.DELETE("/:id", can(models.ResourceUsers, models.ActionDelete), deps.Users.Delete)
	secured.GET("/roles", can(models.ResourceUsers, models.ActionRead), deps.Users.Roles)

	schedulings := secured.Group("/schedulings")
	schedulings.GET("", can(models.ResourceEvaluations, models.ActionRead), deps.Schedulings.List)
	schedulings.GET("/availability", can(models.ResourceEvaluations, models.ActionRead), deps.Schedulings.Availability)
	schedulings.GET("/export", can(models.ResourceReports, models.ActionExport), deps.Schedulings.Export)
	schedulings.GET("/:id", can(models.ResourceEvaluations, models.ActionRead), deps.Schedulings.Get)
	schedulings.POST("", can(models.ResourceEvaluations, models.ActionCreate), deps.Schedulings.Create)
	schedulings.PUT("/:id", can(models.ResourceEvaluations, models.ActionUpdate), deps.Schedulings.Update)
	schedulings.DELETE("/:id", can(models.ResourceEvaluations, models.ActionDelete), deps.Schedulings.Delete)
}
