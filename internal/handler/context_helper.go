package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/classbridge/report-api/internal/middleware"
	"github.com/classbridge/report-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorFromContext(c *gin.Context) models.Actor {
	return models.ActorFromClaims(claimsFromContext(c))
}

func scopeFromQuery(c *gin.Context, schoolID string) models.Scope {
	return models.Scope{
		SchoolID: schoolID,
		YearID:   c.Query("yearId"),
		TermID:   c.Query("termId"),
		ClassID:  c.Query("classId"),
	}
}
