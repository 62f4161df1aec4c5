package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"studentlife/internal/attendance"
	"studentlife/internal/auth"
	"studentlife/internal/config"
	"studentlife/internal/gsuite"
	"studentlife/internal/offers"
	"studentlife/internal/otp"
	"studentlife/internal/password"
	"studentlife/internal/queue"
	"studentlife/internal/registration"
	"studentlife/internal/sms"
	"studentlife/internal/store"
	"studentlife/internal/student"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	// SMS transport: the mock is an explicit configuration choice, never a
	// fallback for missing gateway credentials.
	var sender sms.Sender
	if cfg.SMSMock {
		log.Println("SMS transport: mock (SMS_MOCK=true)")
		sender = sms.MockSender{}
	} else {
		sender = sms.NewGateway(cfg.SMSGatewayURL, cfg.SMSSenderID, cfg.SMSAPIKey)
	}

	var otpStore otp.Store
	if cfg.OTPStoreBackend == "redis" {
		otpStore = otp.NewRedisStore(redisClient.Client, cfg.OTPTTL)
	} else {
		otpStore = otp.NewMemoryStore(cfg.OTPTTL)
	}
	otpSvc := otp.NewService(otpStore, sender)

	userRepo := student.NewRepository(db.Client)
	attRepo := attendance.NewRepository(db.Client)
	attSvc := attendance.NewService(attRepo)
	offerRepo := offers.NewRepository(db.Client)
	passwordSvc := password.NewService(userRepo, otpSvc)

	var gclient *gsuite.Client
	if cfg.GoogleCredentialsJSON != "" {
		gclient, err = gsuite.New(context.Background(), []byte(cfg.GoogleCredentialsJSON), cfg.DriveFolderID, cfg.SheetID)
		if err != nil {
			log.Printf("warning: google client init failed, audit disabled: %v", err)
		}
	} else {
		log.Println("Google credentials not configured (GOOGLE_SERVICE_ACCOUNT_JSON not set)")
	}

	var auditSink registration.AuditSink
	switch cfg.AuditBackend {
	case "queue":
		var q queue.Queue
		if cfg.QueueBackend == "memory" {
			q = queue.NewInMemory(64)
		} else {
			q = queue.NewRedisQueue(redisClient.Client, "studentlife:audit")
		}
		auditSink = registration.QueueSink{Queue: q}
	case "sync":
		if gclient != nil {
			auditSink = registration.SyncSink{Google: gclient, Users: userRepo}
		}
	default:
		log.Println("registration audit disabled (AUDIT_BACKEND=off)")
	}

	regSvc := registration.NewService(userRepo, otpSvc, auditSink)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/api/send-otp", func(c *gin.Context) {
		var req struct {
			MobileNumber string `json:"mobileNumber" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "mobileNumber is required"})
			return
		}
		if !registration.ValidPhone(req.MobileNumber) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "enter a valid 10-digit mobile number"})
			return
		}

		if err := otpSvc.Request(c.Request.Context(), req.MobileNumber); err != nil {
			log.Printf("send otp to %s failed: %v", req.MobileNumber, err)
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Failed to send OTP. Please try again."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP sent successfully"})
	})

	r.POST("/api/verify-otp", func(c *gin.Context) {
		var req struct {
			MobileNumber string `json:"mobileNumber" binding:"required"`
			OTP          string `json:"otp" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "mobileNumber and otp are required"})
			return
		}

		if err := otpSvc.Verify(c.Request.Context(), req.MobileNumber, req.OTP); err != nil {
			writeOTPError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP verified"})
	})

	r.POST("/api/register", func(c *gin.Context) {
		var body struct {
			registration.Draft
			OTP string `json:"otp"`
		}
		data := c.PostForm("data")
		if data == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "data field is required"})
			return
		}
		if err := bindJSONString(data, &body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid registration payload"})
			return
		}

		var selfie []byte
		selfieMime := ""
		if fh, err := c.FormFile("selfie"); err == nil {
			f, err := fh.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "could not read selfie"})
				return
			}
			selfie, err = io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "could not read selfie"})
				return
			}
			selfieMime = fh.Header.Get("Content-Type")
		}

		created, err := regSvc.Finalize(c.Request.Context(), body.Draft, body.OTP, selfie, selfieMime)
		if err != nil {
			switch {
			case errors.Is(err, otp.ErrExpired), errors.Is(err, otp.ErrMismatch):
				writeOTPError(c, err)
			case errors.Is(err, registration.ErrAlreadyRegistered):
				c.JSON(http.StatusConflict, gin.H{"success": false, "message": err.Error()})
			default:
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			}
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "userId": created.ID})
	})

	r.POST("/api/login", func(c *gin.Context) {
		var req struct {
			MobileNumber string `json:"mobileNumber" binding:"required"`
			Password     string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "mobileNumber and password are required"})
			return
		}

		user, err := userRepo.GetByContact(c.Request.Context(), req.MobileNumber)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "login failed"})
			return
		}
		if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid number or password"})
			return
		}

		sess, err := auth.Issue(user.ID, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"token":     sess.Token,
			"expiresAt": sess.ExpiresAt.Unix(),
			"user":      user,
		})
	})

	r.POST("/api/reset-password", func(c *gin.Context) {
		var req struct {
			MobileNumber string `json:"mobileNumber" binding:"required"`
			OTP          string `json:"otp" binding:"required"`
			NewPassword  string `json:"newPassword" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "mobileNumber, otp and newPassword are required"})
			return
		}

		if err := passwordSvc.Reset(c.Request.Context(), req.MobileNumber, req.OTP, req.NewPassword); err != nil {
			switch {
			case errors.Is(err, otp.ErrExpired), errors.Is(err, otp.ErrMismatch):
				writeOTPError(c, err)
			case errors.Is(err, password.ErrNoAccount):
				c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
			case errors.Is(err, password.ErrWeakPassword):
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to reset password"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successfully"})
	})

	authGroup := r.Group("/api", auth.StudentAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	authGroup.POST("/attendance", func(c *gin.Context) {
		var req struct {
			UserID          string   `json:"userId" binding:"required"`
			SessionID       string   `json:"sessionId" binding:"required"`
			CourseID        string   `json:"courseId" binding:"required"`
			SessionName     string   `json:"sessionName" binding:"required"`
			CourseName      string   `json:"courseName" binding:"required"`
			SessionDate     string   `json:"sessionDate" binding:"required"`
			Mode            string   `json:"mode" binding:"required"`
			Rating          int      `json:"rating"`
			Feedback        string   `json:"feedback"`
			LocationLat     *float64 `json:"locationLat"`
			LocationLong    *float64 `json:"locationLong"`
			LocationAddress string   `json:"locationAddress"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}

		claims := mustClaims(c)
		if claims.Subject != req.UserID {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "user mismatch"})
			return
		}

		rec, err := attSvc.Submit(c.Request.Context(), attendance.Submission{
			UserID:          req.UserID,
			SessionID:       req.SessionID,
			CourseID:        req.CourseID,
			SessionName:     req.SessionName,
			CourseName:      req.CourseName,
			SessionDate:     req.SessionDate,
			Mode:            req.Mode,
			Rating:          req.Rating,
			Feedback:        req.Feedback,
			LocationLat:     req.LocationLat,
			LocationLong:    req.LocationLong,
			LocationAddress: req.LocationAddress,
		})
		if err != nil {
			switch {
			case errors.Is(err, attendance.ErrUnauthenticated):
				c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": err.Error()})
			case errors.Is(err, attendance.ErrRatingRequired), errors.Is(err, attendance.ErrInvalidMode):
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to record attendance"})
			}
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "record": rec})
	})

	authGroup.GET("/attendance/:userId", func(c *gin.Context) {
		userID := c.Param("userId")
		if mustClaims(c).Subject != userID {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "user mismatch"})
			return
		}
		records, err := attRepo.ListRecords(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load records"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "records": records})
	})

	authGroup.GET("/attendance/:userId/stats", func(c *gin.Context) {
		userID := c.Param("userId")
		if mustClaims(c).Subject != userID {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "user mismatch"})
			return
		}
		stats, err := attRepo.GetStats(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load stats"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "total": stats.Total, "percentage": stats.Percentage})
	})

	authGroup.GET("/offers/:userId", func(c *gin.Context) {
		userID := c.Param("userId")
		if mustClaims(c).Subject != userID {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "user mismatch"})
			return
		}
		letters, err := offerRepo.List(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load offers"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "offers": letters})
	})

	decideOffer := func(decide func(context.Context, string) error) gin.HandlerFunc {
		return func(c *gin.Context) {
			id := c.Param("id")
			letter, err := offerRepo.Get(c.Request.Context(), id)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load offer"})
				return
			}
			if letter == nil || letter.UserID != mustClaims(c).Subject {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "offer not found"})
				return
			}
			if err := decide(c.Request.Context(), id); err != nil {
				if errors.Is(err, offers.ErrNotPending) {
					c.JSON(http.StatusConflict, gin.H{"success": false, "message": err.Error()})
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to update offer"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true})
		}
	}
	authGroup.POST("/offers/:id/accept", decideOffer(offerRepo.Accept))
	authGroup.POST("/offers/:id/reject", decideOffer(offerRepo.Reject))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// writeOTPError maps OTP verification failures onto the response shape the
// client uses to decide between clearing inputs (expired) and letting the
// user retype (invalid).
func writeOTPError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, otp.ErrExpired):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false, "message": "OTP expired. Please request a new one.", "errorType": "expired",
		})
	case errors.Is(err, otp.ErrMismatch):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false, "message": "Invalid OTP. Please try again.", "errorType": "invalid",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "OTP verification failed"})
	}
}

func mustClaims(c *gin.Context) auth.Claims {
	claimsAny, _ := c.Get("claims")
	claims, _ := claimsAny.(auth.Claims)
	return claims
}

func bindJSONString(data string, out any) error {
	return json.Unmarshal([]byte(data), out)
}

// CORS middleware for browser requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
