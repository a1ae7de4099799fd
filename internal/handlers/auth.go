package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs operator tokens.
type TokenIssuer interface {
	Issue(userID, role string) (string, error)
}

type operatorLoginRequest struct {
	Operator string `json:"operator"`
	PIN      string `json:"pin" binding:"required"`
}

// OperatorLogin exchanges the stall PIN for an operator token.
func OperatorLogin(pinHash string, issuer TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/login"
		defer handlePanic(c, route)

		var req operatorLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "pin is required")
			return
		}

		if pinHash == "" {
			respondWithError(c, http.StatusServiceUnavailable, route, "operator login is not configured")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(pinHash), []byte(req.PIN)); err != nil {
			log.Printf("[%s] [WARN] invalid pin", route)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		operator := strings.TrimSpace(req.Operator)
		if operator == "" {
			operator = "operator"
		}
		token, err := issuer.Issue(operator, "operator")
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}
