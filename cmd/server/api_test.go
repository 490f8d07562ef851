package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"werewolf/internal/game"
	"werewolf/internal/server"
	serverstore "werewolf/internal/server/store"
)

func newTestAPI(t *testing.T) (*http.ServeMux, *serverstore.Store) {
	t.Helper()
	store, err := serverstore.New(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("建立資料庫失敗: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	table := server.NewTable(server.NewHub(), server.TableOptions{
		Setup:   game.Setup{Players: 9, AllExternal: true, Seed: 5},
		Timeout: time.Second,
		Logger:  zerolog.Nop(),
	})
	mux := http.NewServeMux()
	(&api{store: store, table: table, log: zerolog.Nop()}).routes(mux, t.TempDir())
	return mux, store
}

func do(mux *http.ServeMux, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginAndProfile(t *testing.T) {
	mux, _ := newTestAPI(t)

	rec := do(mux, http.MethodPost, "/api/register", `{"username":"alice","password":"secret1"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("註冊應成功，得到 %d: %s", rec.Code, rec.Body.String())
	}
	var sess sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("解析回應失敗: %v", err)
	}
	if sess.Token == "" || sess.Username != "alice" {
		t.Fatalf("註冊回應不正確: %+v", sess)
	}

	if rec := do(mux, http.MethodPost, "/api/register", `{"username":"alice","password":"secret1"}`, ""); rec.Code != http.StatusConflict {
		t.Fatalf("重複註冊應回傳 409，得到 %d", rec.Code)
	}
	if rec := do(mux, http.MethodPost, "/api/login", `{"username":"alice","password":"wrong!!"}`, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("密碼錯誤應回傳 401，得到 %d", rec.Code)
	}
	if rec := do(mux, http.MethodPost, "/api/login", `not json`, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("格式錯誤應回傳 400，得到 %d", rec.Code)
	}

	rec = do(mux, http.MethodGet, "/api/profile", "", sess.Token)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"username":"alice"`) {
		t.Fatalf("查詢個人資料失敗: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(mux, http.MethodGet, "/api/profile", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("未帶 token 應回傳 401，得到 %d", rec.Code)
	}
	if rec := do(mux, http.MethodGet, "/api/profile", "", "bogus"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("無效 token 應回傳 401，得到 %d", rec.Code)
	}
}

func TestSeatClaimsEndpoint(t *testing.T) {
	mux, store := newTestAPI(t)

	login, err := store.Register("bob", "secret1")
	if err != nil {
		t.Fatalf("註冊失敗: %v", err)
	}
	if err := store.RecordSeatClaim("g-1", 4, login.Account.ID); err != nil {
		t.Fatalf("記錄座位接管失敗: %v", err)
	}

	rec := do(mux, http.MethodGet, "/api/games/g-1/seats", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("查詢座位接管失敗: %d", rec.Code)
	}
	var claims []serverstore.SeatClaim
	if err := json.Unmarshal(rec.Body.Bytes(), &claims); err != nil {
		t.Fatalf("解析回應失敗: %v", err)
	}
	if len(claims) != 1 || claims[0].PlayerID != 4 || claims[0].Username != "bob" {
		t.Fatalf("座位接管紀錄不正確: %+v", claims)
	}
}

func TestTableStatusEndpoint(t *testing.T) {
	mux, _ := newTestAPI(t)

	rec := do(mux, http.MethodGet, "/api/table", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("查詢牌桌失敗: %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析回應失敗: %v", err)
	}
	if body["status"] != server.TableStatusWaiting || body["tableId"] == "" {
		t.Fatalf("牌桌狀態不正確: %v", body)
	}
}

func TestParseAuthHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer abc ")
	if got := parseAuthHeader(req); got != "abc" {
		t.Fatalf("應解析出 abc，得到 %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "xyz"})
	if got := parseAuthHeader(req); got != "xyz" {
		t.Fatalf("應由 cookie 取得 xyz，得到 %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	if got := parseAuthHeader(req); got != "" {
		t.Fatalf("非 Bearer 應回傳空字串，得到 %q", got)
	}
}
