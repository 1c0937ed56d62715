package whatsthat_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	whatsthat "github.com/whatsthat-app/whatsthat-go"
)

// recordedRequest is one request seen by fakeAPI.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
	Header http.Header
}

type fakeUser struct {
	whatsthat.User
	Password string
	Contacts map[string]bool
	Blocked  map[string]bool
	Photo    []byte
	PhotoCT  string
}

// fakeAPI is an in-memory WhatsThat server. Ids are issued as JSON numbers to
// exercise numeric id decoding.
type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	nextID   int
	clock    int64
	users    map[string]*fakeUser
	tokens   map[string]string
	chats    map[string]*whatsthat.Chat
	requests []recordedRequest
	// failures forces a status for "METHOD /path" (path without the API prefix).
	failures map[string]int
}

const apiPrefix = "/api/1.0.0"

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		t:        t,
		nextID:   1,
		clock:    1_700_000_000_000,
		users:    make(map[string]*fakeUser),
		tokens:   make(map[string]string),
		chats:    make(map[string]*whatsthat.Chat),
		failures: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /user", f.signUp)
	mux.HandleFunc("POST /login", f.login)
	mux.HandleFunc("POST /logout", f.auth(f.logout))
	mux.HandleFunc("GET /user/{id}", f.auth(f.getUser))
	mux.HandleFunc("PATCH /user/{id}", f.auth(f.patchUser))
	mux.HandleFunc("GET /user/{id}/photo", f.auth(f.getPhoto))
	mux.HandleFunc("POST /user/{id}/photo", f.auth(f.setPhoto))
	mux.HandleFunc("GET /contacts", f.auth(f.listContacts))
	mux.HandleFunc("POST /user/{id}/contact", f.auth(f.setContact(true)))
	mux.HandleFunc("DELETE /user/{id}/contact", f.auth(f.setContact(false)))
	mux.HandleFunc("GET /blocked", f.auth(f.listBlocked))
	mux.HandleFunc("POST /user/{id}/block", f.auth(f.setBlocked(true)))
	mux.HandleFunc("DELETE /user/{id}/block", f.auth(f.setBlocked(false)))
	mux.HandleFunc("GET /search", f.auth(f.search))
	mux.HandleFunc("GET /chat", f.auth(f.listChats))
	mux.HandleFunc("POST /chat", f.auth(f.createChat))
	mux.HandleFunc("GET /chat/{id}", f.auth(f.getChat))
	mux.HandleFunc("PATCH /chat/{id}", f.auth(f.renameChat))
	mux.HandleFunc("POST /chat/{id}/message", f.auth(f.sendMessage))
	mux.HandleFunc("PATCH /chat/{id}/message/{mid}", f.auth(f.editMessage))
	mux.HandleFunc("DELETE /chat/{id}/message/{mid}", f.auth(f.deleteMessage))
	mux.HandleFunc("POST /chat/{id}/user/{uid}", f.auth(f.addMember))
	mux.HandleFunc("DELETE /chat/{id}/user/{uid}", f.auth(f.removeMember))

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, apiPrefix)
		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method, Path: path, Query: r.URL.RawQuery, Body: string(body), Header: r.Header.Clone(),
		})
		status, forced := f.failures[r.Method+" "+path]
		f.mu.Unlock()

		if forced {
			w.WriteHeader(status)
			return
		}
		r2 := r.Clone(r.Context())
		r2.URL.Path = path
		r2.URL.RawPath = ""
		r2.Body = io.NopCloser(strings.NewReader(string(body)))
		mux.ServeHTTP(w, r2)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) baseURL() string { return f.srv.URL + apiPrefix }

func (f *fakeAPI) client(opts ...whatsthat.ClientOption) *whatsthat.Client {
	return whatsthat.NewClient(append([]whatsthat.ClientOption{whatsthat.WithBaseURL(f.baseURL())}, opts...)...)
}

// fail forces every "METHOD path" request to answer with status.
func (f *fakeAPI) fail(method, path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = status
}

func (f *fakeAPI) heal(method, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, method+" "+path)
}

func (f *fakeAPI) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeAPI) lastRequest(method, path string) (recordedRequest, bool) {
	reqs := f.recorded()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return recordedRequest{}, false
}

func (f *fakeAPI) count(method, path string) int {
	n := 0
	for _, r := range f.recorded() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// addUser registers a user directly and returns its id.
func (f *fakeAPI) addUser(first, last, email, password string) whatsthat.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(first, last, email, password)
}

func (f *fakeAPI) addUserLocked(first, last, email, password string) whatsthat.ID {
	id := strconv.Itoa(f.nextID)
	f.nextID++
	f.users[id] = &fakeUser{
		User:     whatsthat.User{UserID: whatsthat.ID(id), FirstName: first, LastName: last, Email: email},
		Password: password,
		Contacts: make(map[string]bool),
		Blocked:  make(map[string]bool),
	}
	return whatsthat.ID(id)
}

// addChat creates a chat owned by creator with the given members.
func (f *fakeAPI) addChat(name string, creator whatsthat.ID, members ...whatsthat.ID) whatsthat.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := strconv.Itoa(f.nextID)
	f.nextID++
	f.chats[id] = f.newChatLocked(name, string(creator), members...)
	return whatsthat.ID(id)
}

// putChat creates a chat under a fixed id.
func (f *fakeAPI) putChat(id whatsthat.ID, name string, creator whatsthat.ID, members ...whatsthat.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats[string(id)] = f.newChatLocked(name, string(creator), members...)
}

func (f *fakeAPI) newChatLocked(name, creator string, members ...whatsthat.ID) *whatsthat.Chat {
	owner := f.users[creator].User
	chat := &whatsthat.Chat{Name: name, Creator: owner, Members: []whatsthat.Member{owner}, Messages: []whatsthat.Message{}}
	for _, m := range members {
		if u, ok := f.users[string(m)]; ok && m != owner.UserID {
			chat.Members = append(chat.Members, u.User)
		}
	}
	return chat
}

// addMessage appends a message to a chat at timestamp ts.
func (f *fakeAPI) addMessage(chatID, author whatsthat.ID, text string, ts int64) whatsthat.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := strconv.Itoa(f.nextID)
	f.nextID++
	chat := f.chats[string(chatID)]
	chat.Messages = append(chat.Messages, whatsthat.Message{
		MessageID: whatsthat.ID(id), Author: f.users[string(author)].User, Text: text, Timestamp: ts,
	})
	return whatsthat.ID(id)
}

// session logs userID in with a fixed token.
func (f *fakeAPI) session(userID whatsthat.ID) whatsthat.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := "tok-" + string(userID)
	f.tokens[token] = string(userID)
	return whatsthat.Session{UserID: userID, Token: token}
}

func (f *fakeAPI) chat(id whatsthat.ID) whatsthat.Chat {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *f.chats[string(id)]
	c.Messages = append([]whatsthat.Message(nil), c.Messages...)
	c.Members = append([]whatsthat.Member(nil), c.Members...)
	return c
}

// ============================================================================
// Handlers
// ============================================================================

type authedHandler func(w http.ResponseWriter, r *http.Request, me string)

func (f *fakeAPI) auth(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		me, ok := f.tokens[r.Header.Get(whatsthat.AuthHeader)]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		h(w, r, me)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) signUp(w http.ResponseWriter, r *http.Request) {
	var in whatsthat.SignUpOptions
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	for _, u := range f.users {
		if u.Email == in.Email {
			f.mu.Unlock()
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}
	id := f.addUserLocked(in.FirstName, in.LastName, in.Email, in.Password)
	f.mu.Unlock()
	n, _ := strconv.Atoi(string(id))
	writeJSON(w, http.StatusCreated, map[string]int{"user_id": n})
}

func (f *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var in struct{ Email, Password string }
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.users {
		if u.Email == in.Email && u.Password == in.Password {
			token := fmt.Sprintf("tok-%s-%d", id, len(f.tokens))
			f.tokens[token] = id
			n, _ := strconv.Atoi(id)
			writeJSON(w, http.StatusOK, map[string]any{"id": n, "token": token})
			return
		}
	}
	w.WriteHeader(http.StatusBadRequest)
}

func (f *fakeAPI) logout(w http.ResponseWriter, r *http.Request, _ string) {
	f.mu.Lock()
	delete(f.tokens, r.Header.Get(whatsthat.AuthHeader))
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (f *fakeAPI) getUser(w http.ResponseWriter, r *http.Request, _ string) {
	f.mu.Lock()
	u, ok := f.users[r.PathValue("id")]
	f.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, u.User)
}

func (f *fakeAPI) patchUser(w http.ResponseWriter, r *http.Request, me string) {
	if r.PathValue("id") != me {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	var in whatsthat.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	u := f.users[me]
	if in.FirstName != "" {
		u.FirstName = in.FirstName
	}
	if in.LastName != "" {
		u.LastName = in.LastName
	}
	if in.Email != "" {
		u.Email = in.Email
	}
	if in.Password != "" {
		u.Password = in.Password
	}
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (f *fakeAPI) getPhoto(w http.ResponseWriter, r *http.Request, _ string) {
	f.mu.Lock()
	u, ok := f.users[r.PathValue("id")]
	f.mu.Unlock()
	if !ok || u.Photo == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(u.Photo)
}

func (f *fakeAPI) setPhoto(w http.ResponseWriter, r *http.Request, me string) {
	if r.PathValue("id") != me {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	data, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.users[me].Photo = data
	f.users[me].PhotoCT = r.Header.Get("Content-Type")
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (f *fakeAPI) usersIn(set map[string]bool) []whatsthat.User {
	out := []whatsthat.User{}
	for id := range set {
		out = append(out, f.users[id].User)
	}
	return out
}

func (f *fakeAPI) listContacts(w http.ResponseWriter, _ *http.Request, me string) {
	f.mu.Lock()
	out := f.usersIn(f.users[me].Contacts)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeAPI) listBlocked(w http.ResponseWriter, _ *http.Request, me string) {
	f.mu.Lock()
	out := f.usersIn(f.users[me].Blocked)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeAPI) setContact(on bool) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, me string) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := r.PathValue("id")
		if _, ok := f.users[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if on {
			f.users[me].Contacts[id] = true
		} else {
			delete(f.users[me].Contacts, id)
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (f *fakeAPI) setBlocked(on bool) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, me string) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := r.PathValue("id")
		if _, ok := f.users[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if on {
			f.users[me].Blocked[id] = true
			delete(f.users[me].Contacts, id)
		} else {
			delete(f.users[me].Blocked, id)
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (f *fakeAPI) search(w http.ResponseWriter, r *http.Request, me string) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	scope := r.URL.Query().Get("search_in")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []whatsthat.User{}
	for id, u := range f.users {
		if scope == "contacts" && !f.users[me].Contacts[id] {
			continue
		}
		if strings.Contains(strings.ToLower(u.FirstName+" "+u.LastName+" "+u.Email), q) {
			out = append(out, u.User)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeAPI) listChats(w http.ResponseWriter, _ *http.Request, me string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []whatsthat.ChatSummary{}
	for id, c := range f.chats {
		if !c.HasMember(whatsthat.ID(me)) {
			continue
		}
		s := whatsthat.ChatSummary{ChatID: whatsthat.ID(id), Name: c.Name, Creator: c.Creator}
		if n := len(c.Messages); n > 0 {
			last := c.Messages[n-1]
			s.LastMessage = &last
		}
		out = append(out, s)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeAPI) createChat(w http.ResponseWriter, r *http.Request, me string) {
	var in struct{ Name string }
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	id := strconv.Itoa(f.nextID)
	f.nextID++
	f.chats[id] = f.newChatLocked(in.Name, me)
	f.mu.Unlock()
	n, _ := strconv.Atoi(id)
	writeJSON(w, http.StatusCreated, map[string]int{"chat_id": n})
}

// memberChat returns the chat if me is a member, writing the error otherwise.
// Callers hold f.mu.
func (f *fakeAPI) memberChat(w http.ResponseWriter, r *http.Request, me string) *whatsthat.Chat {
	c, ok := f.chats[r.PathValue("id")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return nil
	}
	if !c.HasMember(whatsthat.ID(me)) {
		w.WriteHeader(http.StatusForbidden)
		return nil
	}
	return c
}

func (f *fakeAPI) getChat(w http.ResponseWriter, r *http.Request, me string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.memberChat(w, r, me)
	if c == nil {
		return
	}
	out := *c
	out.ChatID = ""
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeAPI) renameChat(w http.ResponseWriter, r *http.Request, me string) {
	var in struct{ Name string }
	_ = json.NewDecoder(r.Body).Decode(&in)
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.memberChat(w, r, me)
	if c == nil {
		return
	}
	c.Name = in.Name
	w.WriteHeader(http.StatusOK)
}

func (f *fakeAPI) sendMessage(w http.ResponseWriter, r *http.Request, me string) {
	var in struct{ Message string }
	_ = json.NewDecoder(r.Body).Decode(&in)
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.memberChat(w, r, me)
	if c == nil {
		return
	}
	id := strconv.Itoa(f.nextID)
	f.nextID++
	f.clock += 1000
	c.Messages = append(c.Messages, whatsthat.Message{
		MessageID: whatsthat.ID(id), Author: f.users[me].User, Text: in.Message, Timestamp: f.clock,
	})
	w.WriteHeader(http.StatusOK)
}

func (f *fakeAPI) findMessage(c *whatsthat.Chat, id string) int {
	for i, m := range c.Messages {
		if string(m.MessageID) == id {
			return i
		}
	}
	return -1
}

func (f *fakeAPI) editMessage(w http.ResponseWriter, r *http.Request, me string) {
	var in struct{ Message string }
	_ = json.NewDecoder(r.Body).Decode(&in)
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.memberChat(w, r, me)
	if c == nil {
		return
	}
	i := f.findMessage(c, r.PathValue("mid"))
	if i < 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if string(c.Messages[i].Author.UserID) != me {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	c.Messages[i].Text = in.Message
	w.WriteHeader(http.StatusOK)
}

func (f *fakeAPI) deleteMessage(w http.ResponseWriter, r *http.Request, me string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.memberChat(w, r, me)
	if c == nil {
		return
	}
	i := f.findMessage(c, r.PathValue("mid"))
	if i < 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if string(c.Messages[i].Author.UserID) != me {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	c.Messages = append(c.Messages[:i], c.Messages[i+1:]...)
	w.WriteHeader(http.StatusOK)
}

func (f *fakeAPI) addMember(w http.ResponseWriter, r *http.Request, me string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.memberChat(w, r, me)
	if c == nil {
		return
	}
	u, ok := f.users[r.PathValue("uid")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if !c.HasMember(u.UserID) {
		c.Members = append(c.Members, u.User)
	}
	w.WriteHeader(http.StatusOK)
}

func (f *fakeAPI) removeMember(w http.ResponseWriter, r *http.Request, me string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.memberChat(w, r, me)
	if c == nil {
		return
	}
	uid := r.PathValue("uid")
	for i, m := range c.Members {
		if string(m.UserID) == uid {
			c.Members = append(c.Members[:i], c.Members[i+1:]...)
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

type seeded struct {
	api    *fakeAPI
	ash    whatsthat.ID
	misty  whatsthat.ID
	chatID whatsthat.ID
	client *whatsthat.Client
}

// seed creates two users and a chat they share, with a client logged in as
// the first user.
func seed(t *testing.T, opts ...whatsthat.ClientOption) seeded {
	t.Helper()
	api := newFakeAPI(t)
	ash := api.addUser("Ash", "Ketchum", "ash@example.com", "Pikachu1!")
	misty := api.addUser("Misty", "Waterflower", "misty@example.com", "Starmie1!")
	chatID := api.addChat("Kanto", ash, misty)
	client := api.client(opts...).WithSession(api.session(ash))
	require.True(t, client.Session().LoggedIn())
	return seeded{api: api, ash: ash, misty: misty, chatID: chatID, client: client}
}
