package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	appErrors "github.com/bekzodm/taskhub/pkg/errors"
	"github.com/bekzodm/taskhub/pkg/response"
)

// Health returns a simple status payload useful for readiness checks. When a
// database handle is supplied the check also pings the store.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(requestContext(c))
			}
			if err != nil {
				response.Error(c, appErrors.ErrStoreUnavailable.WithInternal(err))
				return
			}
		}

		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
