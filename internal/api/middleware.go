package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fittrack/backend/internal/apperr"
	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Constants for context keys
const (
	ContextPrincipalKey = "principal"
	ContextRequestIDKey = "requestID"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// PrincipalResolver turns the token subject into a Principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, userID primitive.ObjectID) (*domain.Principal, error)
}

// AuthMiddleware authenticates the request with an HS256 bearer token whose
// subject is the user id, then resolves the caller's Principal. Tokens are
// issued by the identity provider; this service only verifies them.
func AuthMiddleware(jwtSecret, issuer string, principals PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperr.AuthenticationRequired("authorization header is missing"))
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortWithError(c, apperr.AuthenticationRequired("authorization header format must be Bearer {token}"))
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWithError(c, apperr.AuthenticationRequired("token has expired"))
			} else {
				abortWithError(c, apperr.AuthenticationRequired("invalid token"))
			}
			return
		}
		if !token.Valid || (issuer != "" && !claims.VerifyIssuer(issuer, true)) {
			abortWithError(c, apperr.AuthenticationRequired("invalid token"))
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.Subject)
		if err != nil {
			abortWithError(c, apperr.AuthenticationRequired("token subject is not a user id"))
			return
		}
		principal, err := principals.Resolve(c.Request.Context(), userID)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(ContextPrincipalKey, principal)
		c.Next()
	}
}

// IssueToken signs an HS256 token for userID. Used by the token command to
// mint credentials for local development.
func IssueToken(jwtSecret, issuer string, userID primitive.ObjectID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.Hex(),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
}

// RequestIDMiddleware propagates or assigns a request id.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// LoggingMiddleware writes one structured line per request and records its
// latency.
func LoggingMiddleware(log *zap.SugaredLogger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.ObserveRequest(c.Request.Method, route, strconv.Itoa(status), elapsed)

		fields := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"elapsed", elapsed,
			"request_id", c.GetString(ContextRequestIDKey),
		}
		if p := principalFromContext(c); p != nil {
			fields = append(fields, "user_id", p.UserID.Hex())
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Errorw("request failed", append(fields, "errors", c.Errors.String())...)
		default:
			log.Debugw("request handled", fields...)
		}
	}
}

// abortWithError writes the error body and aborts. Anything that is not an
// *apperr.Error is reported as an opaque internal error.
func abortWithError(c *gin.Context, err error) {
	appErr, ok := apperr.From(err)
	if !ok {
		_ = c.Error(err)
		appErr = apperr.New(apperr.KindInternal, "internal server error")
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(appErr.Kind), gin.H{"error": appErr})
}

func principalFromContext(c *gin.Context) *domain.Principal {
	raw, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return nil
	}
	p, _ := raw.(*domain.Principal)
	return p
}

// pathID parses an ObjectID path parameter.
func pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, apperr.Validation(fmt.Sprintf("invalid %s format", name)))
		return primitive.NilObjectID, false
	}
	return id, true
}

// bindJSON decodes the body into req, reporting binding failures as
// validation errors.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abortWithError(c, apperr.Validation("invalid request body: "+err.Error()))
		return false
	}
	return true
}
