package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/profdeck/canvas-grader/internal/models"
	"github.com/rs/zerolog"
)

// Client is the narrow read/write surface of the Canvas REST API that the
// grading pipeline consumes. Transport and auth details stay behind it.
type Client interface {
	VerifyConnection(ctx context.Context) (string, error)
	GetCourses(ctx context.Context) ([]models.Course, error)
	GetStudents(ctx context.Context, courseID int64) ([]models.StudentGrade, error)
	GetAssignments(ctx context.Context, courseID int64) ([]models.Assignment, error)
	CreateAssignment(ctx context.Context, courseID int64, data map[string]interface{}) (*models.Assignment, error)
	UpdateAssignment(ctx context.Context, courseID, assignmentID int64, data map[string]interface{}) (*models.Assignment, error)
	GetRequirement(ctx context.Context, courseID, assignmentID int64) (*models.GradingRequirement, error)
	ListSubmissions(ctx context.Context, courseID, assignmentID int64) ([]models.Submission, error)
	DownloadAttachment(ctx context.Context, att models.AttachmentRef) ([]byte, error)
	PostGrade(ctx context.Context, courseID, assignmentID, userID int64, score float64, comment string) error
}

type client struct {
	baseURL        string
	token          string
	httpClient     *http.Client
	downloadClient *http.Client
	retryCount     int
	retryDelay     time.Duration
	logger         zerolog.Logger
}

func NewClient(baseURL, token string, requestTimeout, downloadTimeout time.Duration, retryCount int, retryDelay time.Duration, logger zerolog.Logger) Client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		downloadClient: &http.Client{
			Timeout: downloadTimeout,
		},
		retryCount: retryCount,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

func (c *client) VerifyConnection(ctx context.Context) (string, error) {
	var user struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, "/api/v1/users/self", &user); err != nil {
		return "", fmt.Errorf("failed to verify Canvas connection: %w", err)
	}

	c.logger.Info().Int64("user_id", user.ID).Str("name", user.Name).Msg("Canvas connection verified")
	return user.Name, nil
}

// getJSON performs an authenticated GET with retries on transport errors
// and 5xx responses.
func (c *client) getJSON(ctx context.Context, path string, dst interface{}) error {
	var lastErr error

	for i := 0; i <= c.retryCount; i++ {
		if i > 0 {
			c.logger.Warn().Int("attempt", i).Str("path", path).Msg("Retrying Canvas request")
			select {
			case <-time.After(c.retryDelay * time.Duration(i)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("canvas returned status %d: %s", resp.StatusCode, string(body))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("canvas returned status %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(dst)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("canvas request failed after %d attempts: %w", c.retryCount+1, lastErr)
}

// sendJSON performs an authenticated request with a JSON body. Write
// operations are not retried.
func (c *client) sendJSON(ctx context.Context, method, path string, payload, dst interface{}) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = strings.NewReader(string(buf))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("canvas request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("canvas returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
