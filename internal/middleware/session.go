package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/medadvisor/advisor-api/internal/constants"
)

// RememberConfirmation stores the restore confirmation issued to this session
func RememberConfirmation(c *gin.Context, token, sourceURI string) error {
	session := sessions.Default(c)
	session.Set(constants.SessionKeyConfirmation, token)
	session.Set(constants.SessionKeyConfirmationFrom, sourceURI)
	return session.Save()
}

// TakeConfirmation returns the session's confirmation token for sourceURI and clears it.
// It returns "" when the session holds none or holds one for another source.
func TakeConfirmation(c *gin.Context, sourceURI string) string {
	session := sessions.Default(c)
	token, _ := session.Get(constants.SessionKeyConfirmation).(string)
	source, _ := session.Get(constants.SessionKeyConfirmationFrom).(string)
	if token == "" {
		return ""
	}

	session.Delete(constants.SessionKeyConfirmation)
	session.Delete(constants.SessionKeyConfirmationFrom)
	_ = session.Save()

	if source != sourceURI {
		return ""
	}
	return token
}
