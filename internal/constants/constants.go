package constants

// Session keys
const (
	SessionName                = "advisor_session"
	SessionKeyConfirmation     = "restore_confirmation_token"
	SessionKeyConfirmationFrom = "restore_confirmation_source"
)

// Request headers
const (
	HeaderRequestTimeout = "X-Request-Timeout"
)

// Actions accepted by POST /api
const (
	ActionCreatePlanTasks         = "createPlanTasks"
	ActionCreateTasksForNewClient = "createTasksForNewClient"
	ActionDailyNotifications      = "daily_notifications"
	ActionNotifyTodayTasks        = "notify_today_tasks"
	ActionNotifyTomorrowTasks     = "notify_tomorrow_tasks"
	ActionGetAllTasksStats        = "getAllTasksStats"
	ActionConfirmRestore          = "confirmRestore"
	ActionRestoreBackup           = "restoreBackup"
	ActionRestoreStatus           = "restoreStatus"
	ActionManualBackup            = "manualBackup"
	ActionBackupStatus            = "backupStatus"
	ActionListBackups             = "listBackups"
	ActionUpsertUser              = "upsertUser"
	ActionUpsertProduct           = "upsertProduct"
)
