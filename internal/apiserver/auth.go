package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type contextKey string

const userContextKey contextKey = "user"

// Claims is the JWT payload an authenticated caller carries: a subject and
// a role, on top of the registered claims jwt.RegisteredClaims defines.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates and issues the JWT tokens guarding both the
// REST and gRPC surfaces of this package, sharing a single secret across
// both transports.
type AuthMiddleware struct {
	JWTSecret  string
	publicGRPC map[string]struct{}
}

// NewAuthMiddleware builds an AuthMiddleware. publicGRPCMethods names
// fully-qualified gRPC methods (e.g. "/scanner.ScannerService/Health")
// that skip token validation; REST's public route is wired separately in
// rest.go by simply not mounting the middleware on it.
func NewAuthMiddleware(jwtSecret string, publicGRPCMethods ...string) *AuthMiddleware {
	public := make(map[string]struct{}, len(publicGRPCMethods))
	for _, m := range publicGRPCMethods {
		public[m] = struct{}{}
	}
	return &AuthMiddleware{JWTSecret: jwtSecret, publicGRPC: public}
}

// Middleware authenticates an incoming REST request, rejecting it with
// 401 unless the Authorization header carries a valid bearer token.
func (am *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := extractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		claims, err := am.ValidateToken(tokenString)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid token: %v", err), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GenerateToken signs a 24-hour token for userID/role.
func (am *AuthMiddleware) GenerateToken(userID, role string) (string, error) {
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "subgraph-core",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(am.JWTSecret))
}

// ValidateToken parses and verifies tokenString, requiring HMAC signing.
func (am *AuthMiddleware) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(am.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// GetUserFromContext returns the claims a middleware stashed on ctx, or
// nil if the request reached this point unauthenticated.
func GetUserFromContext(ctx context.Context) *Claims {
	if user, ok := ctx.Value(userContextKey).(*Claims); ok {
		return user
	}
	return nil
}

// RequireRole builds REST middleware rejecting callers whose role doesn't
// match requiredRole; "admin" always passes, in either direction.
func (am *AuthMiddleware) RequireRole(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r.Context())
			if user == nil {
				http.Error(w, "user not authenticated", http.StatusUnauthorized)
				return
			}
			if user.Role != requiredRole && requiredRole != "admin" && user.Role != "admin" {
				http.Error(w, "insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GRPCAuthUnaryInterceptor validates the bearer token on every unary call
// except the methods registered as public.
func (am *AuthMiddleware) GRPCAuthUnaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if am.isPublicMethod(info.FullMethod) {
		return handler(ctx, req)
	}

	tokenString, err := extractTokenFromMetadata(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}

	claims, err := am.ValidateToken(tokenString)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}

	newCtx := context.WithValue(ctx, userContextKey, claims)
	return handler(newCtx, req)
}

// GRPCAuthStreamInterceptor is GRPCAuthUnaryInterceptor's streaming
// counterpart: it wraps the stream so downstream handlers still see the
// authenticated context via ss.Context().
func (am *AuthMiddleware) GRPCAuthStreamInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if am.isPublicMethod(info.FullMethod) {
		return handler(srv, ss)
	}

	tokenString, err := extractTokenFromMetadata(ss.Context())
	if err != nil {
		return status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}

	claims, err := am.ValidateToken(tokenString)
	if err != nil {
		return status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}

	newCtx := context.WithValue(ss.Context(), userContextKey, claims)
	return handler(srv, &authedStream{ServerStream: ss, ctx: newCtx})
}

// GetGRPCAuthInterceptors returns both interceptors for grpc.NewServer.
func (am *AuthMiddleware) GetGRPCAuthInterceptors() (grpc.UnaryServerInterceptor, grpc.StreamServerInterceptor) {
	return am.GRPCAuthUnaryInterceptor, am.GRPCAuthStreamInterceptor
}

func (am *AuthMiddleware) isPublicMethod(fullMethod string) bool {
	_, ok := am.publicGRPC[fullMethod]
	return ok
}

func extractTokenFromMetadata(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", fmt.Errorf("no metadata in context")
	}

	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		authHeaders = md.Get("Authorization")
		if len(authHeaders) == 0 {
			return "", fmt.Errorf("authorization header not found")
		}
	}
	return extractBearerToken(authHeaders[0])
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is required")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		tokenString = strings.TrimPrefix(authHeader, "Token ")
		if tokenString == authHeader {
			return "", fmt.Errorf("authorization header must be in the form 'Bearer {token}' or 'Token {token}'")
		}
	}
	return strings.TrimSpace(tokenString), nil
}

// authedStream wraps a grpc.ServerStream to swap in the context carrying
// validated claims.
type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authedStream) Context() context.Context { return s.ctx }
