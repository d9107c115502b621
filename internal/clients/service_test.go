package clients

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-crm/atelier-crm/internal/shared"
)

type stubRepo struct {
	created Client
	updates map[string]interface{}
	stored  map[uuid.UUID]*Client
}

func (s *stubRepo) Get(_ context.Context, id uuid.UUID) (*Client, error) {
	if c, ok := s.stored[id]; ok {
		return c, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) List(_ context.Context, _ ListClientsRequest) ([]Client, int, error) {
	var list []Client
	for _, c := range s.stored {
		list = append(list, *c)
	}
	return list, len(list), nil
}

func (s *stubRepo) Create(_ context.Context, client Client) (uuid.UUID, error) {
	s.created = client
	return uuid.New(), nil
}

func (s *stubRepo) Update(_ context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if _, ok := s.stored[id]; !ok {
		return shared.ErrNotFound
	}
	s.updates = updates
	return nil
}

func (s *stubRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.stored[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.stored, id)
	return nil
}

func (s *stubRepo) Count(_ context.Context) (int, error) { return len(s.stored), nil }

func TestCreateNormalizesInput(t *testing.T) {
	repo := &stubRepo{stored: map[uuid.UUID]*Client{}}
	svc := NewService(repo)

	client, err := svc.Create(context.Background(), CreateClientRequest{
		FirstName: "  Maya ",
		LastName:  "Lindgren",
		Email:     "Maya.Lindgren@Example.COM",
		Tags:      []string{" vip ", "", "bridal"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Maya", client.FirstName)
	assert.Equal(t, "maya.lindgren@example.com", client.Email)
	assert.Equal(t, []string{"vip", "bridal"}, client.Tags)
	assert.NotEqual(t, uuid.Nil, client.ID)
}

func TestCreateRejectsInvalidEmail(t *testing.T) {
	svc := NewService(&stubRepo{stored: map[uuid.UUID]*Client{}})

	_, err := svc.Create(context.Background(), CreateClientRequest{
		FirstName: "Maya",
		LastName:  "Lindgren",
		Email:     "not-an-email",
	})
	require.Error(t, err)
}

func TestUpdateBuildsPartialFieldSet(t *testing.T) {
	id := uuid.New()
	repo := &stubRepo{stored: map[uuid.UUID]*Client{id: {ID: id}}}
	svc := NewService(repo)

	email := "new@example.com"
	err := svc.Update(context.Background(), id, UpdateClientRequest{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"email": "new@example.com"}, repo.updates)
}

func TestUpdateMissingClient(t *testing.T) {
	svc := NewService(&stubRepo{stored: map[uuid.UUID]*Client{}})

	email := "new@example.com"
	err := svc.Update(context.Background(), uuid.New(), UpdateClientRequest{Email: &email})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
