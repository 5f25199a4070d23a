/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/blnkfinance/jukebox/config"
	"github.com/blnkfinance/jukebox/internal/apierror"
)

const (
	KeyHeader = "X-Jukebox-Key"
	KeyQuery  = "key"
)

// AdminKeyMiddleware guards the DJ routes. The key may come from the
// header or from the key query parameter used by the admin page links.
func AdminKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		conf, err := config.Fetch()
		if err != nil || conf.Server.AdminKey == "" {
			abortWithError(c, apierror.NewAPIError(apierror.ErrConfiguration, "Admin key is not configured", err))
			return
		}

		clientKey := c.GetHeader(KeyHeader)
		if clientKey == "" {
			clientKey = c.Query(KeyQuery)
		}

		if clientKey == "" || !secureCompare(conf.Server.AdminKey, clientKey) {
			abortWithError(c, apierror.NewAPIError(apierror.ErrForbidden, "Forbidden: Invalid secret key.", nil))
			return
		}

		c.Next()
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": apierror.MessageOf(err)})
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
