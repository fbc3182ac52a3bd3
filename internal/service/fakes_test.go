package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okrish/wavelink/internal/models"
)

// memStore is an in-memory stand-in for all four repositories. Writes are
// applied under one mutex, mirroring the single-statement atomicity the
// Postgres implementations get from the database.
type memStore struct {
	mu sync.Mutex

	channels map[uuid.UUID]*models.Channel
	members  map[uuid.UUID]map[uuid.UUID]struct{}
	users    map[uuid.UUID]*models.User

	nextMessageID int64
	messages      []*models.Message
	reads         map[int64]map[uuid.UUID]struct{}
}

func newMemStore() *memStore {
	return &memStore{
		channels: make(map[uuid.UUID]*models.Channel),
		members:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
		users:    make(map[uuid.UUID]*models.User),
		reads:    make(map[int64]map[uuid.UUID]struct{}),
	}
}

func (s *memStore) addUser(name string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.users[id] = &models.User{
		ID:          id,
		Email:       name + "@example.com",
		DisplayName: name,
		CreatedAt:   time.Now(),
	}
	return id
}

// ChannelRepository

func (s *memStore) Create(ctx context.Context, name, description string, isPrivate bool, ownerID uuid.UUID) (*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := &models.Channel{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		IsPrivate:   isPrivate,
		OwnerID:     ownerID,
		CreatedAt:   time.Now(),
	}
	s.channels[ch.ID] = ch
	s.members[ch.ID] = map[uuid.UUID]struct{}{ownerID: {}}
	return ch, nil
}

func (s *memStore) GetByID(ctx context.Context, channelID uuid.UUID) (*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channelID]
	if !ok {
		return nil, nil
	}
	copied := *ch
	return &copied, nil
}

func (s *memStore) ListVisible(ctx context.Context, userID uuid.UUID) ([]models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Channel, 0)
	for _, ch := range s.channels {
		if _, member := s.members[ch.ID][userID]; !ch.IsPrivate || member {
			out = append(out, *ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) Update(ctx context.Context, channelID uuid.UUID, name, description *string, isPrivate *bool) (*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channelID]
	if !ok {
		return nil, nil
	}
	if name != nil {
		ch.Name = *name
	}
	if description != nil {
		ch.Description = *description
	}
	if isPrivate != nil {
		ch.IsPrivate = *isPrivate
	}
	copied := *ch
	return &copied, nil
}

func (s *memStore) Delete(ctx context.Context, channelID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, channelID)
	delete(s.members, channelID)
	return nil
}

// MembershipRepository

func (s *memStore) AddMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.members[channelID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		s.members[channelID] = set
	}
	if _, exists := set[userID]; exists {
		return false, nil
	}
	set[userID] = struct{}{}
	return true, nil
}

func (s *memStore) RemoveMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.members[channelID]
	if _, exists := set[userID]; !exists {
		return false, nil
	}
	delete(set, userID)
	return true, nil
}

func (s *memStore) IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.members[channelID][userID]
	return exists, nil
}

func (s *memStore) ListMembers(ctx context.Context, channelID uuid.UUID) ([]models.UserRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.UserRef, 0)
	for id := range s.members[channelID] {
		ref := models.UserRef{ID: id}
		if u, ok := s.users[id]; ok {
			ref.DisplayName = u.DisplayName
			ref.Email = u.Email
		}
		out = append(out, ref)
	}
	return out, nil
}

// MessageRepository

func (s *memStore) CreateMessage(ctx context.Context, channelID, senderID uuid.UUID, content string, attachments []string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attachments == nil {
		attachments = []string{}
	}
	s.nextMessageID++
	msg := &models.Message{
		ID:          s.nextMessageID,
		ChannelID:   channelID,
		SenderID:    senderID,
		Content:     content,
		Attachments: attachments,
		CreatedAt:   time.Now(),
	}
	s.messages = append(s.messages, msg)
	s.reads[msg.ID] = map[uuid.UUID]struct{}{senderID: {}}
	copied := *msg
	copied.ReadBy = []uuid.UUID{senderID}
	return &copied, nil
}

func (s *memStore) GetMessageByID(ctx context.Context, messageID int64) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.messages {
		if msg.ID == messageID {
			copied := *msg
			copied.ReadBy = s.readSetLocked(messageID)
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListPage(ctx context.Context, channelID uuid.UUID, offset, limit int) ([]models.MessageDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newestFirst := make([]*models.Message, 0)
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ChannelID == channelID {
			newestFirst = append(newestFirst, s.messages[i])
		}
	}

	out := make([]models.MessageDetail, 0)
	for i := offset; i < len(newestFirst) && i < offset+limit; i++ {
		msg := newestFirst[i]
		md := models.MessageDetail{Message: *msg}
		md.ReadBy = s.readSetLocked(msg.ID)
		if u, ok := s.users[msg.SenderID]; ok {
			md.Sender = models.UserRef{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email}
		}
		if ch, ok := s.channels[channelID]; ok {
			md.ChannelName = ch.Name
		}
		out = append(out, md)
	}
	return out, nil
}

func (s *memStore) CountByChannel(ctx context.Context, channelID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, msg := range s.messages {
		if msg.ChannelID == channelID {
			total++
		}
	}
	return total, nil
}

func (s *memStore) MarkRead(ctx context.Context, messageIDs []int64, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range messageIDs {
		set, ok := s.reads[id]
		if !ok {
			continue
		}
		set[userID] = struct{}{}
	}
	return nil
}

func (s *memStore) DeleteMessage(ctx context.Context, messageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, msg := range s.messages {
		if msg.ID == messageID {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
	delete(s.reads, messageID)
	return nil
}

func (s *memStore) readSetLocked(messageID int64) []uuid.UUID {
	out := make([]uuid.UUID, 0)
	for id := range s.reads[messageID] {
		out = append(out, id)
	}
	return out
}

// messageRepo adapts memStore to repository.MessageRepository; the method
// names on memStore differ so they don't collide with the channel methods.
type messageRepo struct{ *memStore }

func (r messageRepo) Create(ctx context.Context, channelID, senderID uuid.UUID, content string, attachments []string) (*models.Message, error) {
	return r.CreateMessage(ctx, channelID, senderID, content, attachments)
}

func (r messageRepo) GetByID(ctx context.Context, messageID int64) (*models.Message, error) {
	return r.GetMessageByID(ctx, messageID)
}

func (r messageRepo) Delete(ctx context.Context, messageID int64) error {
	return r.DeleteMessage(ctx, messageID)
}

// userRepo adapts memStore to repository.UserRepository.
type userRepo struct{ *memStore }

func (r userRepo) Create(ctx context.Context, email, displayName, passwordHash string) (*models.User, error) {
	return r.CreateUser(ctx, email, displayName, passwordHash)
}

func (r userRepo) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return r.GetUserByID(ctx, userID)
}

// UserRepository

func (s *memStore) CreateUser(ctx context.Context, email, displayName, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *memStore) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (s *memStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}
