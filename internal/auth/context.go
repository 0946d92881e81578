package auth

import "github.com/gin-gonic/gin"

const actorKey = "actor"

// SetActor stores the authenticated actor in the Gin context.
func SetActor(c *gin.Context, a Actor) {
	c.Set(actorKey, a)
}

// GetActor returns the authenticated actor, if any.
func GetActor(c *gin.Context) (Actor, bool) {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(Actor); ok {
			return a, true
		}
	}
	return Actor{}, false
}
