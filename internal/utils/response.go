package utils

import "github.com/gin-gonic/gin"

// JSON writes data with the given status code.
func JSON(c *gin.Context, code int, data gin.H) {
	c.JSON(code, data)
}

// Error writes the flat error shape every endpoint uses: {"error": msg}.
func Error(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"error": msg,
	})
}
