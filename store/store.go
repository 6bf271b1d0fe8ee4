// Package store keeps the client's followed authors, the current selection and
// the per-author profile and timeline caches.
//
// The author list, the selection and the profile map are written through to a
// durable back-end; timelines go to a transient one and are empty in every new
// session. Operations never fail: back-end errors are logged and the in-memory
// state stays authoritative for the rest of the session.
package store

import (
	"encoding/json"
	"slices"
	"sync"
	"weibo_relay/dto"
	"weibo_relay/shared"
)

// Keys are stable across versions; persisted state written by older clients must keep loading.
const (
	keyAuthorIds      = "weibo-blogger-ids"
	keyCurrentId      = "weibo-current-blogger"
	keyProfiles       = "weibo-bloggers-data"
	keyTimelinePrefix = "weibo-blogger-weibos/"
)

type Store struct {
	logger    shared.ILogger
	durable   KeyValue
	transient KeyValue

	// Each operation holds mu for its whole duration, so every call is atomic.
	mu        sync.Mutex
	authorIds []dto.AuthorId
	currentId *dto.AuthorId
	profiles  map[dto.AuthorId]*dto.Profile
}

func NewStore(logger shared.ILogger, durable, transient KeyValue) *Store {
	s := Store{
		logger:    logger,
		durable:   durable,
		transient: transient,
		profiles:  make(map[dto.AuthorId]*dto.Profile),
	}
	s.load()
	return &s
}

func (s *Store) load() {
	s.loadJson(keyAuthorIds, &s.authorIds)
	s.loadJson(keyCurrentId, &s.currentId)
	s.loadJson(keyProfiles, &s.profiles)
	if s.profiles == nil {
		s.profiles = make(map[dto.AuthorId]*dto.Profile)
	}
	for id, profile := range s.profiles {
		if profile == nil {
			delete(s.profiles, id)
		}
	}
	if s.repair() {
		s.logger.Warnf("Persisted author list or selection was inconsistent; repaired to %v", s.authorIds)
		s.persistAuthorIds()
		s.persistCurrentId()
	}
}

// repair restores the invariants on state loaded from outside: no duplicate ids,
// and the selection is absent exactly when the list is empty.
func (s *Store) repair() bool {
	changed := false
	var ids []dto.AuthorId
	for _, id := range s.authorIds {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		} else {
			changed = true
		}
	}
	s.authorIds = ids
	if s.currentId != nil && !slices.Contains(s.authorIds, *s.currentId) {
		s.currentId = nil
		changed = true
	}
	if s.currentId == nil && len(s.authorIds) > 0 {
		first := s.authorIds[0]
		s.currentId = &first
		changed = true
	}
	return changed
}

func (s *Store) loadJson(key string, obj any) {
	val, found, err := s.durable.GetValue(key)
	if err != nil {
		s.logger.Errorf("Failed to load '%s' from cache: %v", key, err)
		return
	}
	if !found {
		return
	}
	if err = json.Unmarshal(val, obj); err != nil {
		s.logger.Warnf("Ignoring unreadable cache value '%s': %v", key, err)
	}
}

func (s *Store) saveJson(kv KeyValue, key string, obj any) {
	val, err := json.Marshal(obj)
	if err != nil {
		s.logger.Errorf("Failed to serialize cache value '%s': %v", key, err)
		return
	}
	if err = kv.SetValue(key, val); err != nil {
		s.logger.Errorf("Failed to store cache value '%s': %v", key, err)
	}
}

func (s *Store) persistAuthorIds() {
	s.saveJson(s.durable, keyAuthorIds, s.authorIds)
}

func (s *Store) persistCurrentId() {
	s.saveJson(s.durable, keyCurrentId, s.currentId)
}

func (s *Store) persistProfiles() {
	s.saveJson(s.durable, keyProfiles, s.profiles)
}

func timelineKey(id dto.AuthorId) string {
	return keyTimelinePrefix + id.String()
}

// AddAuthor follows id. The first author followed becomes the current one.
func (s *Store) AddAuthor(id dto.AuthorId) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.authorIds, id) {
		return
	}
	s.authorIds = append(s.authorIds, id)
	s.persistAuthorIds()
	if s.currentId == nil {
		s.currentId = &id
		s.persistCurrentId()
	}
}

// RemoveAuthor unfollows id and purges its cached profile and timeline.
// If id was current, the selection moves to the first remaining author.
func (s *Store) RemoveAuthor(id dto.AuthorId) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ix := slices.Index(s.authorIds, id)
	if ix < 0 {
		return
	}
	s.authorIds = slices.Delete(s.authorIds, ix, ix+1)
	s.persistAuthorIds()

	delete(s.profiles, id)
	s.persistProfiles()
	if err := s.transient.DeleteValue(timelineKey(id)); err != nil {
		s.logger.Errorf("Failed to drop cached timeline of %v: %v", id, err)
	}

	if s.currentId != nil && *s.currentId == id {
		s.currentId = nil
		if len(s.authorIds) > 0 {
			first := s.authorIds[0]
			s.currentId = &first
		}
		s.persistCurrentId()
	}
}

// SwitchCurrent selects id; ids that are not followed are ignored.
func (s *Store) SwitchCurrent(id dto.AuthorId) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(s.authorIds, id) {
		return
	}
	s.currentId = &id
	s.persistCurrentId()
}

func (s *Store) SaveProfile(id dto.AuthorId, profile *dto.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if profile == nil {
		delete(s.profiles, id)
	} else {
		cp := *profile
		s.profiles[id] = &cp
	}
	s.persistProfiles()
}

// SaveTimeline replaces the cached timeline of id. Pages are not merged; callers
// that want several pages concatenate them before saving.
func (s *Store) SaveTimeline(id dto.AuthorId, cards []dto.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cards == nil {
		cards = []dto.Card{}
	}
	s.saveJson(s.transient, timelineKey(id), cards)
}

func (s *Store) GetProfile(id dto.AuthorId) (*dto.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getProfile(id)
}

func (s *Store) getProfile(id dto.AuthorId) (*dto.Profile, bool) {
	profile, ok := s.profiles[id]
	if !ok {
		return nil, false
	}
	cp := *profile
	return &cp, true
}

// GetTimeline never returns nil; an author with nothing cached has an empty timeline.
func (s *Store) GetTimeline(id dto.AuthorId) []dto.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := []dto.Card{}
	val, found, err := s.transient.GetValue(timelineKey(id))
	if err != nil {
		s.logger.Errorf("Failed to read cached timeline of %v: %v", id, err)
		return res
	}
	if !found {
		return res
	}
	if err = json.Unmarshal(val, &res); err != nil || res == nil {
		s.logger.Warnf("Ignoring unreadable cached timeline of %v: %v", id, err)
		return []dto.Card{}
	}
	return res
}

// CurrentProfile is the cached profile of the current author, if there is a selection and a profile.
func (s *Store) CurrentProfile() (*dto.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentId == nil {
		return nil, false
	}
	return s.getProfile(*s.currentId)
}

func (s *Store) Current() (dto.AuthorId, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentId == nil {
		return 0, false
	}
	return *s.currentId, true
}

func (s *Store) AuthorIds() []dto.AuthorId {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.authorIds)
}

func (s *Store) Profiles() map[dto.AuthorId]*dto.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make(map[dto.AuthorId]*dto.Profile, len(s.profiles))
	for id, profile := range s.profiles {
		cp := *profile
		res[id] = &cp
	}
	return res
}
