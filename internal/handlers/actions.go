package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medadvisor/advisor-api/internal/constants"
	"github.com/medadvisor/advisor-api/internal/dto"
	apierrors "github.com/medadvisor/advisor-api/internal/errors"
	"github.com/medadvisor/advisor-api/internal/middleware"
	"github.com/medadvisor/advisor-api/internal/models"
	"github.com/medadvisor/advisor-api/internal/services"
	"github.com/medadvisor/advisor-api/internal/snapshot"
)

const maxActionLength = 50

type actionFunc func(c *gin.Context, req dto.ActionRequest)

// ActionHandler serves the action-addressed POST /api endpoint
type ActionHandler struct {
	taskService         *services.TaskService
	notificationService *services.NotificationService
	backupService       *services.BackupService
	directoryService    *services.DirectoryService
	actions             map[string]actionFunc
}

func NewActionHandler(taskService *services.TaskService, notificationService *services.NotificationService, backupService *services.BackupService, directoryService *services.DirectoryService) *ActionHandler {
	h := &ActionHandler{
		taskService:         taskService,
		notificationService: notificationService,
		backupService:       backupService,
		directoryService:    directoryService,
	}
	h.actions = map[string]actionFunc{
		constants.ActionCreatePlanTasks:         h.createPlanTasks,
		constants.ActionCreateTasksForNewClient: h.createTasksForNewClient,
		constants.ActionDailyNotifications:      h.notify(0),
		constants.ActionNotifyTodayTasks:        h.notify(0),
		constants.ActionNotifyTomorrowTasks:     h.notify(1),
		constants.ActionGetAllTasksStats:        h.getAllTasksStats,
		constants.ActionConfirmRestore:          h.confirmRestore,
		constants.ActionRestoreBackup:           h.restoreBackup,
		constants.ActionRestoreStatus:           h.operationStatus,
		constants.ActionManualBackup:            h.manualBackup,
		constants.ActionBackupStatus:            h.backupStatus,
		constants.ActionListBackups:             h.listBackups,
		constants.ActionUpsertUser:              h.upsertUser,
		constants.ActionUpsertProduct:           h.upsertProduct,
	}
	return h
}

// Actions lists the accepted action names in sorted order
func (h *ActionHandler) Actions() []string {
	names := make([]string, 0, len(h.actions))
	for name := range h.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle decodes the envelope and dispatches on its action
func (h *ActionHandler) Handle(c *gin.Context) {
	var req dto.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	action := strings.TrimSpace(req.Action)
	if action == "" {
		apierrors.MissingField(c, "action")
		return
	}
	if len(action) > maxActionLength {
		apierrors.BadRequest(c, "Invalid action parameter")
		return
	}

	run, ok := h.actions[action]
	if !ok {
		apierrors.UnknownAction(c, action, h.Actions())
		return
	}
	run(c, req)
}

// Health reports that the process is serving
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "Medical Advisor API",
		"timestamp": time.Now().UTC(),
	})
}

func (h *ActionHandler) createPlanTasks(c *gin.Context, req dto.ActionRequest) {
	plan, err := req.DecodePlan()
	if err != nil {
		apierrors.BadRequest(c, "Invalid plan")
		return
	}

	result, err := h.taskService.CreatePlanTasks(c.Request.Context(), plan)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPlanTasksResponse(result))
}

func (h *ActionHandler) createTasksForNewClient(c *gin.Context, req dto.ActionRequest) {
	client, err := req.DecodeClient()
	if err != nil {
		apierrors.BadRequest(c, "Invalid client")
		return
	}

	result, err := h.taskService.CreateTasksForNewClient(c.Request.Context(), client)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToClientTasksResponse(result))
}

func (h *ActionHandler) notify(offsetDays int) actionFunc {
	return func(c *gin.Context, _ dto.ActionRequest) {
		result, err := h.notificationService.RunDailyPass(c.Request.Context(), offsetDays)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.ToNotificationResponse(result))
	}
}

func (h *ActionHandler) getAllTasksStats(c *gin.Context, _ dto.ActionRequest) {
	stats, err := h.taskService.TaskStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskStatsResponse(stats))
}

func (h *ActionHandler) confirmRestore(c *gin.Context, req dto.ActionRequest) {
	confirmation, err := h.backupService.ConfirmRestore(c.Request.Context(), req.SourceURI)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := middleware.RememberConfirmation(c, confirmation.Token, confirmation.SourceURI); err != nil {
		log.Printf("Failed to store restore confirmation in session: %v", err)
	}
	c.JSON(http.StatusOK, dto.ToConfirmRestoreResponse(confirmation))
}

func (h *ActionHandler) restoreBackup(c *gin.Context, req dto.ActionRequest) {
	token := req.ConfirmationToken
	if token == "" {
		token = middleware.TakeConfirmation(c, req.SourceURI)
	}

	op, err := h.backupService.StartRestore(c.Request.Context(), token, req.SourceURI)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("Restore %s started from %s", op.Name, op.SourceURI)
	c.JSON(http.StatusAccepted, dto.ToOperationStartedResponse(op))
}

func (h *ActionHandler) manualBackup(c *gin.Context, _ dto.ActionRequest) {
	op, err := h.backupService.StartBackup(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("Backup %s started", op.Name)
	c.JSON(http.StatusAccepted, dto.ToOperationStartedResponse(op))
}

func (h *ActionHandler) operationStatus(c *gin.Context, req dto.ActionRequest) {
	status, err := h.backupService.PollStatus(c.Request.Context(), req.OperationName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOperationStatusResponse(status))
}

// backupStatus without an operation name reports the latest backup
func (h *ActionHandler) backupStatus(c *gin.Context, req dto.ActionRequest) {
	if req.OperationName != "" {
		h.operationStatus(c, req)
		return
	}

	status, err := h.backupService.LatestStatus(c.Request.Context(), models.BackupKindExport)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOperationStatusResponse(status))
}

func (h *ActionHandler) listBackups(c *gin.Context, _ dto.ActionRequest) {
	infos, err := h.backupService.ListBackups(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListBackupsResponse(infos))
}

func (h *ActionHandler) upsertUser(c *gin.Context, req dto.ActionRequest) {
	user, err := req.DecodeUser()
	if err != nil {
		apierrors.BadRequest(c, "Invalid user")
		return
	}

	if err := h.directoryService.UpsertUser(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SavedResponse{Success: true, ID: user.ID})
}

func (h *ActionHandler) upsertProduct(c *gin.Context, req dto.ActionRequest) {
	product, err := req.DecodeProduct()
	if err != nil {
		apierrors.BadRequest(c, "Invalid product")
		return
	}

	if err := h.directoryService.UpsertProduct(c.Request.Context(), product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SavedResponse{Success: true, ID: product.ID})
}

// respondError maps service errors onto API errors. Anything unexpected is
// logged in full and answered with a generic message.
func respondError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		apierrors.MissingField(c, validationErr.Field)
	case errors.Is(err, services.ErrPlanRequired):
		apierrors.MissingField(c, "plan")
	case errors.Is(err, services.ErrClientRequired):
		apierrors.MissingField(c, "client")
	case errors.Is(err, services.ErrUserRequired):
		apierrors.MissingField(c, "user")
	case errors.Is(err, services.ErrProductRequired):
		apierrors.MissingField(c, "product")
	case errors.Is(err, services.ErrSourceRequired):
		apierrors.MissingField(c, "source_uri")
	case errors.Is(err, services.ErrOperationNameRequired):
		apierrors.MissingField(c, "operation_name")
	case errors.Is(err, services.ErrConfirmationRequired), errors.Is(err, services.ErrInvalidConfirmation):
		apierrors.InvalidConfirmation(c, err.Error())
	case errors.Is(err, services.ErrOperationNotFound):
		apierrors.NotFound(c, "Operation not found")
	case errors.Is(err, snapshot.ErrSourceMissing):
		apierrors.NotFound(c, "Backup not found")
	case errors.Is(err, snapshot.ErrInvalidSource):
		apierrors.BadRequest(c, "Invalid source_uri")
	case errors.Is(err, context.DeadlineExceeded):
		apierrors.Timeout(c)
	default:
		log.Printf("Action %s failed: %v", c.FullPath(), err)
		apierrors.InternalError(c, "Internal server error occurred")
	}
}
