package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Liveness answers 200 while the process is serving.
func Liveness() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	}
}
