package analyses

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"docinsight-backend/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T, svc *Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Session())
	NewHandler(svc, svc.DocRepo, svc.Current).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, sessionID string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Session-Id", sessionID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var body map[string]any
	if resp.Body.Len() > 0 && resp.Body.Bytes()[0] == '{' {
		if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp, body
}

func waitForTerminalStatus(t *testing.T, router *gin.Engine, analysisID, sessionID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, body := doJSON(t, router, http.MethodGet, "/api/v1/analyses/"+analysisID, sessionID)
		if resp.Code != http.StatusOK {
			t.Fatalf("poll analysis: status %d", resp.Code)
		}
		if status, _ := body["status"].(string); status == StatusCompleted || status == StatusFailed {
			return body
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("analysis did not reach a terminal status")
	return nil
}

func TestAnalyzeEndpointCompletesAndServesCurrent(t *testing.T) {
	llmClient := &scriptedLLM{responses: []string{fourStepPayload}}
	svc, _, docID := setupService(t, llmClient, "申請書の提出期限は3月末です。")
	router := newTestRouter(t, svc)

	resp, body := doJSON(t, router, http.MethodPost, "/api/v1/documents/"+docID+"/analyze", "session-1")
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	analysisID, _ := body["analysisId"].(string)
	if analysisID == "" {
		t.Fatalf("expected analysisId in response")
	}

	final := waitForTerminalStatus(t, router, analysisID, "session-1")
	if final["status"] != StatusCompleted {
		t.Fatalf("expected completed, got %v (%v)", final["status"], final["detail"])
	}
	layout, ok := final["processMapLayout"].(map[string]any)
	if !ok {
		t.Fatalf("expected processMapLayout in completed payload")
	}
	rows, _ := layout["rows"].([]any)
	if len(rows) != 4 {
		t.Fatalf("expected 4 layout rows, got %d", len(rows))
	}

	respCur, cur := doJSON(t, router, http.MethodGet, "/api/v1/analyses/current", "session-1")
	if respCur.Code != http.StatusOK {
		t.Fatalf("expected 200 for current result, got %d", respCur.Code)
	}
	if cur["analysisId"] != analysisID {
		t.Fatalf("expected current result for %s, got %v", analysisID, cur["analysisId"])
	}
}

func TestAnalyzeEndpointFailurePayload(t *testing.T) {
	llmClient := &scriptedLLM{responses: []string{"{not-json"}}
	svc, _, docID := setupService(t, llmClient, "document text")
	router := newTestRouter(t, svc)

	resp, body := doJSON(t, router, http.MethodPost, "/api/v1/documents/"+docID+"/analyze", "session-1")
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	analysisID, _ := body["analysisId"].(string)

	final := waitForTerminalStatus(t, router, analysisID, "session-1")
	if final["status"] != StatusFailed {
		t.Fatalf("expected failed, got %v", final["status"])
	}
	if final["errorCode"] != ErrorCodeSchemaViolation {
		t.Fatalf("expected %s, got %v", ErrorCodeSchemaViolation, final["errorCode"])
	}
	if msg, _ := final["message"].(string); msg == "" {
		t.Fatalf("expected a user-facing message")
	}
	if detail, _ := final["detail"].(string); detail == "" {
		t.Fatalf("expected technical detail")
	}
}

func TestAnalyzeEndpointUnknownDocument(t *testing.T) {
	llmClient := &scriptedLLM{}
	svc, _, _ := setupService(t, llmClient, "document text")
	router := newTestRouter(t, svc)

	resp, _ := doJSON(t, router, http.MethodPost, "/api/v1/documents/nope/analyze", "session-1")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestGetAnalysisScopedToSession(t *testing.T) {
	llmClient := &scriptedLLM{responses: []string{fourStepPayload}}
	svc, repo, docID := setupService(t, llmClient, "document text")
	router := newTestRouter(t, svc)

	analysis := createQueued(t, repo, docID)
	svc.completeAsync(context.Background(), analysis.ID)

	resp, _ := doJSON(t, router, http.MethodGet, "/api/v1/analyses/"+analysis.ID, "other-session")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another session, got %d", resp.Code)
	}
}
