package mock

import "github.com/gin-gonic/gin"

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// fail отвечает в формате FastAPI: текст ошибки в detail.
func fail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "detail": detail})
}
