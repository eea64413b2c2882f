package middleware

import "github.com/gin-gonic/gin"

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"
)

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, cacheHitKey, hit)
}

// SetMeta stores a response metadata entry for the envelope's meta block.
func SetMeta(c *gin.Context, key string, value interface{}) {
	meta := ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
		c.Set(responseMetaKey, meta)
	}
	meta[key] = value
}

// ExtractMeta returns the metadata collected for the current response, or nil.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}
