//go:build integration

package database

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"sortec/entity"
	"sortec/internal/config"
	"sortec/lib/testutil/containers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type sequencedStore interface {
	CreateRegistration(ctx context.Context, reg *entity.Registration) error
	GetRegistration(ctx context.Context, id string) (*entity.Registration, error)
	SetStatus(ctx context.Context, id string, from, to entity.Status, at time.Time) (bool, error)
	Next(ctx context.Context) (int64, error)
	Seed(ctx context.Context, floor int64) error
}

type StoreSuite struct {
	suite.Suite
	store sequencedStore
	reset func(ctx context.Context) error
}

func TestMongoStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	conf := &config.Config{Mongo: containers.Mongo(t)}
	store := NewMongoClient(conf)
	t.Cleanup(func() { store.Close(context.Background()) })
	if err := store.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	suite.Run(t, &StoreSuite{
		store: store,
		reset: func(ctx context.Context) error {
			connection, err := store.connect(ctx)
			if err != nil {
				return err
			}
			db := connection.Database(store.database)
			if err = db.Collection(collectionRegistrations).Drop(ctx); err != nil {
				return err
			}
			if err = db.Collection(collectionCounters).Drop(ctx); err != nil {
				return err
			}
			return store.EnsureIndexes(ctx)
		},
	})
}

func TestMySqlStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	conf := &config.Config{MySql: containers.MySql(t)}
	store, err := NewSQLClient(conf)
	if err != nil {
		t.Fatalf("mysql client: %v", err)
	}
	t.Cleanup(store.Close)

	suite.Run(t, &StoreSuite{
		store: store,
		reset: func(ctx context.Context) error {
			for _, table := range []string{tableRegistration, tableSequence} {
				if _, err := store.db.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s%s", store.prefix, table)); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

func (s *StoreSuite) SetupTest() {
	s.Require().NoError(s.reset(context.Background()))
}

func (s *StoreSuite) pending() *entity.Registration {
	code := "SORTECJP" + uuid.NewString()[:3]
	reg := &entity.Registration{
		Id: uuid.NewString(),
		Participant: entity.Participant{
			DocumentNumber:   "12345678",
			GivenNames:       "Jose",
			FamilyNames:      "Perez",
			Address:          "Av. Grau 300",
			Country:          "Peru",
			Region:           "Piura",
			District:         "Castilla",
			Email:            "jose@example.com",
			Phone:            "987654321",
			VoucherUrl:       "https://files.example.com/v.jpg",
			PaymentReference: "OP-1",
		},
		ContestCode: &code,
		Status:      entity.StatusPending,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	s.Require().NoError(s.store.CreateRegistration(context.Background(), reg))
	return reg
}

func (s *StoreSuite) TestConcurrentNext() {
	ctx := context.Background()
	s.Require().NoError(s.store.Seed(ctx, 5))
	// the counter exists now, a later seed must not move it
	s.Require().NoError(s.store.Seed(ctx, 100))

	const n = 40
	values := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := s.store.Next(ctx)
			s.NoError(err)
			values <- value
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[int64]bool, n)
	for v := range values {
		s.False(seen[v], v)
		seen[v] = true
	}
	s.Len(seen, n)
	for v := int64(6); v <= 5+n; v++ {
		s.True(seen[v], v)
	}
}

func (s *StoreSuite) TestNextWithoutSeed() {
	value, err := s.store.Next(context.Background())
	s.Require().NoError(err)
	s.Equal(int64(1), value)
}

func (s *StoreSuite) TestContestedSetStatus() {
	ctx := context.Background()
	reg := s.pending()

	const n = 20
	winners := make(chan entity.Status, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		target := entity.StatusApproved
		if i%2 == 1 {
			target = entity.StatusDenied
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			swapped, err := s.store.SetStatus(ctx, reg.Id, entity.StatusPending, target, time.Now().UTC())
			s.NoError(err)
			if swapped {
				winners <- target
			}
		}()
	}
	wg.Wait()
	close(winners)

	s.Require().Len(winners, 1)
	winner := <-winners

	stored, err := s.store.GetRegistration(ctx, reg.Id)
	s.Require().NoError(err)
	s.Require().NotNil(stored)
	s.Equal(winner, stored.Status)
	s.NotNil(stored.DecidedAt)
}

func (s *StoreSuite) TestSetStatusMissing() {
	swapped, err := s.store.SetStatus(context.Background(), uuid.NewString(), entity.StatusPending, entity.StatusApproved, time.Now().UTC())
	s.NoError(err)
	s.False(swapped)
}
