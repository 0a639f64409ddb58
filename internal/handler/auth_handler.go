package handler

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/habitlog/internal/logging"
	"golang.org/x/crypto/bcrypt"
)

const sessionAuthKey = "authenticated"

// Login 校验管理密码并建立会话，支持表单与 JSON
func (a *API) Login(c *gin.Context) {
	var payload struct {
		Password string `json:"password" form:"password"`
	}
	if isJSONRequest(c) {
		if !bindJSON(c, &payload, "请求参数不合法") {
			return
		}
	} else {
		payload.Password = c.PostForm("password")
	}

	if payload.Password == "" || bcrypt.CompareHashAndPassword(a.passwordHash, []byte(payload.Password)) != nil {
		logging.FromContext(c).Warn("login rejected", logging.FieldComponent, logging.ComponentAuth)
		respondError(c, http.StatusUnauthorized, "密码错误")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionAuthKey, true)
	if err := session.Save(); err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

// Logout 清除会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

// GetSession 返回当前是否已登录
func (a *API) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"authenticated": isAuthenticated(c)})
}

// AuthRequired 拦截未登录的后台请求，返回 JSON 401
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAuthenticated(c) {
			respondError(c, http.StatusUnauthorized, "需要登录")
			c.Abort()
			return
		}
		c.Next()
	}
}

func isAuthenticated(c *gin.Context) bool {
	authenticated, _ := sessions.Default(c).Get(sessionAuthKey).(bool)
	return authenticated
}
