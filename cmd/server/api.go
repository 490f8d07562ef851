package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"werewolf/internal/server"
	serverstore "werewolf/internal/server/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// api 為牌桌的 HTTP 介面
type api struct {
	store *serverstore.Store
	table *server.Table
	log   zerolog.Logger
}

func (a *api) routes(mux *http.ServeMux, webDir string) {
	mux.HandleFunc("POST /api/register", a.session(a.store.Register))
	mux.HandleFunc("POST /api/login", a.session(a.store.Login))
	mux.HandleFunc("GET /api/profile", a.profile)
	mux.HandleFunc("GET /api/table", a.tableStatus)
	mux.HandleFunc("GET /api/games", a.games)
	mux.HandleFunc("GET /api/games/{id}/history", a.history)
	mux.HandleFunc("GET /api/games/{id}/speeches", a.speeches)
	mux.HandleFunc("GET /api/games/{id}/seats", a.seatClaims)
	mux.HandleFunc("/ws", a.websocket)

	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(webDir+"/static"))))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, webDir+"/index.html")
	})
}

// session 包裝註冊與登入：兩者都讀取帳密並回傳新的會話
func (a *api) session(open func(username, password string) (*serverstore.Login, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.writeError(w, http.StatusBadRequest, "請提供帳號與密碼")
			return
		}
		login, err := open(req.Username, req.Password)
		switch {
		case errors.Is(err, serverstore.ErrUserExists):
			a.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, serverstore.ErrBadCredentials):
			a.writeError(w, http.StatusUnauthorized, err.Error())
		case err != nil:
			a.writeError(w, http.StatusBadRequest, err.Error())
		default:
			a.writeJSON(w, http.StatusOK, sessionResponse{Token: login.Token, Username: login.Account.Username})
		}
	}
}

func (a *api) profile(w http.ResponseWriter, r *http.Request) {
	token := parseAuthHeader(r)
	if token == "" {
		a.writeError(w, http.StatusUnauthorized, "缺少會話資訊")
		return
	}
	acc, err := a.store.Session(token)
	if err != nil {
		a.writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	a.writeJSON(w, http.StatusOK, acc)
}

func (a *api) tableStatus(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{
		"tableId": a.table.ID(),
		"status":  a.table.Status(),
		"gameId":  a.table.GameID(),
	})
}

func (a *api) games(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	games, err := a.store.Games(limit)
	a.respond(w, games, err)
}

func (a *api) history(w http.ResponseWriter, r *http.Request) {
	history, err := a.store.History(r.PathValue("id"))
	a.respond(w, history, err)
}

func (a *api) speeches(w http.ResponseWriter, r *http.Request) {
	speeches, err := a.store.Speeches(r.PathValue("id"))
	a.respond(w, speeches, err)
}

func (a *api) seatClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := a.store.SeatClaims(r.PathValue("id"))
	a.respond(w, claims, err)
}

// websocket 升級連線；未登入的連線只能觀戰
func (a *api) websocket(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("auth"))
	if token == "" {
		token = parseAuthHeader(r)
	}

	var (
		userID  int64
		account string
	)
	if token != "" {
		acc, err := a.store.Session(token)
		if err != nil {
			http.Error(w, "會話無效", http.StatusUnauthorized)
			return
		}
		userID, account = acc.ID, acc.Username
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn().Err(err).Msg("WebSocket 升級失敗")
		return
	}
	server.NewWebClient(conn, a.table, userID, account).Start()
}

func (a *api) respond(w http.ResponseWriter, payload interface{}, err error) {
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.writeJSON(w, http.StatusOK, payload)
}

func (a *api) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.log.Warn().Err(err).Msg("回傳 JSON 失敗")
	}
}

func (a *api) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, map[string]string{"error": message})
}

func parseAuthHeader(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		if cookie, err := r.Cookie("session_token"); err == nil {
			return strings.TrimSpace(cookie.Value)
		}
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
