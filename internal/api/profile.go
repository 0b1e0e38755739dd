package api

import (
	"io"
	"net/http"

	"spot-api/internal/profile"
)

type profileView struct {
	profile.Profile
	DisplayName string `json:"displayName"`
}

func (s *server) writeProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.Profile.Get(r.Context())
	if err != nil {
		writeStoreError(w, r, "profile_get", err)
		return
	}
	writeJSON(w, http.StatusOK, profileView{Profile: p, DisplayName: p.DisplayName()})
}

func (s *server) getProfile(w http.ResponseWriter, r *http.Request) { s.writeProfile(w, r) }

func (s *server) createProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Photo string `json:"photo"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.Profile.Create(r.Context(), body.Name, body.Photo); err != nil {
		writeStoreError(w, r, "profile_create", err)
		return
	}
	s.writeProfile(w, r)
}

func (s *server) skipProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.Profile.Skip(r.Context()); err != nil {
		writeStoreError(w, r, "profile_skip", err)
		return
	}
	s.writeProfile(w, r)
}

func (s *server) saveName(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if _, err := s.Profile.SaveName(r.Context(), body.Name); err != nil {
		writeStoreError(w, r, "profile_name", err)
		return
	}
	s.writeProfile(w, r)
}

func (s *server) savePhoto(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Photo string `json:"photo"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.Profile.SetPhoto(r.Context(), body.Photo); err != nil {
		writeStoreError(w, r, "profile_photo", err)
		return
	}
	s.writeProfile(w, r)
}

func (s *server) saveNotifications(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Enabled == nil {
		badRequest(w, "enabled is required")
		return
	}
	if err := s.Profile.SetNotifications(r.Context(), *body.Enabled); err != nil {
		writeStoreError(w, r, "profile_notifications", err)
		return
	}
	s.writeProfile(w, r)
}

func (s *server) getStories(w http.ResponseWriter, r *http.Request) {
	raw, err := s.Stories.Load(r.Context())
	if err != nil {
		writeStoreError(w, r, "stories_load", err)
		return
	}
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	_, _ = w.Write(raw)
}

func (s *server) putStories(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		badRequest(w, "body too large")
		return
	}
	if err := s.Stories.Save(r.Context(), raw); err != nil {
		if isParse(err) {
			badRequest(w, "stories must be valid json")
			return
		}
		writeStoreError(w, r, "stories_save", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
