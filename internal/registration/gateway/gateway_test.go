package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gemnet/internal/capture"
	"gemnet/internal/registration/models"
	dErrors "gemnet/pkg/domain-errors"
	"gemnet/pkg/platform/circuit"
)

type GatewaySuite struct {
	suite.Suite
	ctx context.Context
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	s.ctx = context.Background()
}

func validInfo() models.PersonalInfo {
	return models.PersonalInfo{
		FirstName:   "Nimal",
		LastName:    "Perera",
		Email:       "nimal@example.com",
		Password:    "Str0ngPass",
		PhoneNumber: "+94701234567",
		NICNumber:   "123456789V",
		DateOfBirth: "1990-04-12",
		Address:     "12 Gem Lane, Ratnapura",
	}
}

func faceImage() capture.Image {
	return capture.Image{Data: []byte{0xFF, 0xD8, 0xFF, 0xE0}, MIME: "image/jpeg", Name: "face.jpg"}
}

func (s *GatewaySuite) TestRegister() {
	s.Run("success returns user id", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal(http.MethodPost, r.Method)
			s.Equal("/api/auth/register", r.URL.Path)

			var got models.PersonalInfo
			s.Require().NoError(json.NewDecoder(r.Body).Decode(&got))
			s.Equal("nimal@example.com", got.Email)

			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"message": "registered",
				"data":    "user-42",
			})
		}))
		defer server.Close()

		client, err := New(server.URL)
		s.Require().NoError(err)

		userID, err := client.Register(s.ctx, validInfo())
		s.Require().NoError(err)
		s.Equal("user-42", userID)
	})

	s.Run("object-shaped data payload accepted", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]string{"userId": "user-43"},
			})
		}))
		defer server.Close()

		client, err := New(server.URL)
		s.Require().NoError(err)

		userID, err := client.Register(s.ctx, validInfo())
		s.Require().NoError(err)
		s.Equal("user-43", userID)
	})

	s.Run("rejection surfaces backend message", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"message": "email already registered",
			})
		}))
		defer server.Close()

		client, err := New(server.URL)
		s.Require().NoError(err)

		_, err = client.Register(s.ctx, validInfo())
		s.True(dErrors.HasCode(err, dErrors.CodeContentRejected))
		s.Contains(err.Error(), "email already registered")
	})

	s.Run("unreachable backend is a transport error", func() {
		client, err := New("http://127.0.0.1:1")
		s.Require().NoError(err)

		_, err = client.Register(s.ctx, validInfo())
		s.True(dErrors.HasCode(err, dErrors.CodeTransport))
	})
}

func (s *GatewaySuite) TestVerifyFace() {
	s.Run("uploads multipart faceImage field", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("/api/auth/verify-face/user-42", r.URL.Path)

			s.Require().NoError(r.ParseMultipartForm(1 << 20))
			file, header, err := r.FormFile("faceImage")
			s.Require().NoError(err)
			defer file.Close()
			s.Equal("face.jpg", header.Filename)

			json.NewEncoder(w).Encode(map[string]any{"success": true})
		}))
		defer server.Close()

		client, err := New(server.URL)
		s.Require().NoError(err)

		s.NoError(client.VerifyFace(s.ctx, "user-42", faceImage()))
	})

	s.Run("rejection is a content error", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"message": "no face detected",
			})
		}))
		defer server.Close()

		client, err := New(server.URL)
		s.Require().NoError(err)

		err = client.VerifyFace(s.ctx, "user-42", faceImage())
		s.True(dErrors.HasCode(err, dErrors.CodeContentRejected))
	})
}

func (s *GatewaySuite) TestVerifyNIC() {
	s.Run("success returns no failure", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("/api/auth/verify-nic/user-42", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]any{"success": true})
		}))
		defer server.Close()

		client, err := New(server.URL)
		s.Require().NoError(err)

		failure, err := client.VerifyNIC(s.ctx, "user-42", faceImage())
		s.Require().NoError(err)
		s.Nil(failure)
	})

	s.Run("answered rejection is classified, not an error", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"data": map[string]any{
					"error":       "FACE_MISMATCH",
					"userMessage": "Face does not match NIC photo",
					"suggestions": []string{"Retake your face capture in good lighting"},
				},
			})
		}))
		defer server.Close()

		client, err := New(server.URL)
		s.Require().NoError(err)

		failure, err := client.VerifyNIC(s.ctx, "user-42", faceImage())
		s.Require().NoError(err)
		s.Require().NotNil(failure)
		s.Equal(models.CodeFaceMismatch, failure.Code)
		s.Equal([]string{"Retake your face capture in good lighting"}, failure.Suggestions)
	})

	s.Run("unknown code collapses to system error", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"data":    map[string]any{"error": "SOMETHING_NEW"},
			})
		}))
		defer server.Close()

		client, err := New(server.URL)
		s.Require().NoError(err)

		failure, err := client.VerifyNIC(s.ctx, "user-42", faceImage())
		s.Require().NoError(err)
		s.Require().NotNil(failure)
		s.Equal(models.CodeSystemError, failure.Code)
	})

	s.Run("timeout is a transport error, not a rejection", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			json.NewEncoder(w).Encode(map[string]any{"success": true})
		}))
		defer server.Close()

		client, err := New(server.URL, WithTimeout(50*time.Millisecond))
		s.Require().NoError(err)

		failure, err := client.VerifyNIC(s.ctx, "user-42", faceImage())
		s.Nil(failure)
		s.True(dErrors.HasCode(err, dErrors.CodeTransport))
	})

	s.Run("malformed body is a transport error", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>gateway exploded</html>"))
		}))
		defer server.Close()

		client, err := New(server.URL)
		s.Require().NoError(err)

		_, err = client.VerifyNIC(s.ctx, "user-42", faceImage())
		s.True(dErrors.HasCode(err, dErrors.CodeTransport))
	})
}

func (s *GatewaySuite) TestHealth() {
	s.Run("healthy backend", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("/api/auth/health", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client, err := New(server.URL)
		s.Require().NoError(err)
		s.NoError(client.Health(s.ctx))
	})

	s.Run("non-200 is unhealthy", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client, err := New(server.URL)
		s.Require().NoError(err)
		s.True(dErrors.HasCode(client.Health(s.ctx), dErrors.CodeTransport))
	})
}

func (s *GatewaySuite) TestBreaker() {
	s.Run("open breaker short-circuits without a network call", func() {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))
		defer server.Close()

		breaker := circuit.New("test", circuit.WithFailureThreshold(1))
		breaker.RecordFailure()

		client, err := New(server.URL, WithBreaker(breaker))
		s.Require().NoError(err)

		_, err = client.Register(s.ctx, validInfo())
		s.True(dErrors.HasCode(err, dErrors.CodeTransport))
		s.Zero(calls)
	})

	s.Run("repeated dead calls trip the breaker", func() {
		breaker := circuit.New("test", circuit.WithFailureThreshold(2))
		client, err := New("http://127.0.0.1:1",
			WithBreaker(breaker),
			WithTimeout(200*time.Millisecond),
		)
		s.Require().NoError(err)

		_, _ = client.Register(s.ctx, validInfo())
		s.False(breaker.IsOpen())
		_, _ = client.Register(s.ctx, validInfo())
		s.True(breaker.IsOpen())
	})

	s.Run("health check closes the breaker again", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		breaker := circuit.New("test", circuit.WithFailureThreshold(1))
		breaker.RecordFailure()

		client, err := New(server.URL, WithBreaker(breaker))
		s.Require().NoError(err)

		s.NoError(client.Health(s.ctx))
		s.False(breaker.IsOpen())
	})
}
