// Package testutil は各サービスのテストで共通して使うヘルパーを提供する。
package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/nao1215/neptube/pkg/middleware"
)

// テスト用のリクエストで認証情報を渡すヘッダー。
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
	HeaderUserRole = "X-User-Role"
)

// OpenMemoryDB はテスト用のインメモリSQLiteを開く。
// インメモリDBは接続ごとに別物になるため、接続数を1に制限する。
func OpenMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// HeaderAuth はJWTミドルウェアの代わりにテスト用ヘッダーから認証情報を設定するミドルウェア。
// X-User-IDが無い場合は401を返す。
func HeaderAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorizationヘッダーが必要です"})
			return
		}
		middleware.SetIdentity(c, middleware.Identity{
			UserID: userID,
			Name:   c.GetHeader(HeaderUserName),
			Role:   c.GetHeader(HeaderUserRole),
		})
		c.Next()
	}
}

// DoRequest はテスト用のHTTPリクエストを実行し、レスポンスを返す。
// id.UserIDが空の場合は認証ヘッダーを付けない。
func DoRequest(h http.Handler, method, path string, id middleware.Identity, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if id.UserID != "" {
		req.Header.Set(HeaderUserID, id.UserID)
		req.Header.Set(HeaderUserName, id.Name)
		req.Header.Set(HeaderUserRole, id.Role)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// DecodeJSON はレスポンスボディを指定された型にデコードする。
func DecodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("JSONのデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return v
}

// Response はUpstreamが返す固定レスポンス。
type Response struct {
	Status int
	Body   string
}

// RecordedRequest はUpstreamが受け取ったリクエスト。
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// DecodeBody はリクエストボディを指定された型にデコードする。
func DecodeBody[T any](t *testing.T, r RecordedRequest) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(r.Body, &v); err != nil {
		t.Fatalf("リクエストボディのデコードに失敗: %v, body=%s", err, r.Body)
	}
	return v
}

// Upstream は他サービスの代わりに受け取ったリクエストを記録するモックサーバー。
// routesのキーは "METHOD /path" 形式で、未登録のルートには404を返す。
type Upstream struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]Response
	requests []RecordedRequest
}

// NewUpstream は上流サービスのモックを生成する。
func NewUpstream(t *testing.T, routes map[string]Response) *Upstream {
	t.Helper()

	if routes == nil {
		routes = make(map[string]Response)
	}
	u := &Upstream{routes: routes}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.Close)
	return u
}

func (u *Upstream) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	u.mu.Lock()
	u.requests = append(u.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	resp, ok := u.routes[r.Method+" "+r.URL.Path]
	u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
		return
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write([]byte(resp.Body))
}

// SetRoute はルートのレスポンスを登録または上書きする。
func (u *Upstream) SetRoute(key string, resp Response) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes[key] = resp
}

// Requests は受け取ったリクエストのうち、"METHOD /path" が一致するものを返す。
func (u *Upstream) Requests(key string) []RecordedRequest {
	u.mu.Lock()
	defer u.mu.Unlock()

	var out []RecordedRequest
	for _, r := range u.requests {
		if r.Method+" "+r.Path == key {
			out = append(out, r)
		}
	}
	return out
}
