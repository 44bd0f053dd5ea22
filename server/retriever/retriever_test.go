package retriever

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuslabs/nexus/store"
)

// fakeMissionStore serves canned missions with plain substring filtering and a
// scripted hybrid search result.
type fakeMissionStore struct {
	missions      []*store.Mission
	notes         []*store.Note
	searchResults []*store.MissionWithDistance
	searchErr     error

	lastSearchOpts *store.MissionSearchOptions
	searchCalls    int
}

func (f *fakeMissionStore) GetMission(ctx context.Context, find *store.FindMission) (*store.Mission, error) {
	list, err := f.ListMissions(ctx, find)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (f *fakeMissionStore) ListMissions(ctx context.Context, find *store.FindMission) ([]*store.Mission, error) {
	matched := []*store.Mission{}
	for _, mission := range f.missions {
		if find.UID != nil && mission.UID != *find.UID {
			continue
		}
		if find.CreatorID != nil && mission.CreatorID != *find.CreatorID {
			continue
		}
		if find.Status != nil && mission.Status != *find.Status {
			continue
		}
		if find.TitleContains != nil && !strings.Contains(strings.ToLower(mission.Title), strings.ToLower(*find.TitleContains)) {
			continue
		}
		matched = append(matched, mission)
	}
	offset := 0
	if find.Offset != nil {
		offset = *find.Offset
	}
	if offset >= len(matched) {
		return []*store.Mission{}, nil
	}
	matched = matched[offset:]
	if find.Limit != nil && len(matched) > *find.Limit {
		matched = matched[:*find.Limit]
	}
	return matched, nil
}

func (f *fakeMissionStore) CountMissions(ctx context.Context, find *store.FindMission) (int, error) {
	find.Limit = nil
	find.Offset = nil
	list, err := f.ListMissions(ctx, find)
	return len(list), err
}

func (f *fakeMissionStore) SearchMissions(ctx context.Context, opts *store.MissionSearchOptions) ([]*store.MissionWithDistance, error) {
	f.searchCalls++
	f.lastSearchOpts = opts
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults, nil
}

func (f *fakeMissionStore) ListNotes(ctx context.Context, find *store.FindNote) ([]*store.Note, error) {
	matched := []*store.Note{}
	for _, note := range f.notes {
		if find.MissionID != nil && note.MissionID != *find.MissionID {
			continue
		}
		matched = append(matched, note)
	}
	return matched, nil
}

type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) Dimensions() int { return len(s.vector) }

func makeMissions(n int, creatorID int32) []*store.Mission {
	missions := make([]*store.Mission, 0, n)
	for i := 0; i < n; i++ {
		missions = append(missions, &store.Mission{
			ID:        int32(i + 1),
			UID:       fmt.Sprintf("uid-%d", i+1),
			CreatorID: creatorID,
			Title:     fmt.Sprintf("mission %d", i+1),
			Status:    store.MissionCompleted,
			CreatedTs: int64(1000 + i),
		})
	}
	return missions
}

func TestListPlainPagination(t *testing.T) {
	st := &fakeMissionStore{missions: makeMissions(7, 1)}
	embedder := &stubEmbedder{vector: []float32{0.1}}
	r := New(st, embedder, 0.5, nil)

	page1, err := r.List(context.Background(), 1, ListOptions{Page: 1, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, page1.Missions, 5)
	assert.Equal(t, Pagination{Total: 7, Page: 1, Pages: 2}, page1.Pagination)

	page2, err := r.List(context.Background(), 1, ListOptions{Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, page2.Missions, 2)
	assert.Equal(t, Pagination{Total: 7, Page: 2, Pages: 2}, page2.Pagination)

	// Plain listing never touches the embedder.
	assert.Equal(t, 0, embedder.calls)
	assert.Equal(t, 0, st.searchCalls)
}

func TestListNormalizesPageAndLimit(t *testing.T) {
	st := &fakeMissionStore{missions: makeMissions(3, 1)}
	r := New(st, nil, 0.5, nil)

	result, err := r.List(context.Background(), 1, ListOptions{Page: 0, Limit: -2})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pagination.Page)
	assert.Len(t, result.Missions, 3)
}

func TestListEmptyResult(t *testing.T) {
	st := &fakeMissionStore{}
	r := New(st, nil, 0.5, nil)

	result, err := r.List(context.Background(), 1, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Missions)
	assert.Equal(t, Pagination{Total: 0, Page: 1, Pages: 1}, result.Pagination)
}

func TestListInvalidStatusFilter(t *testing.T) {
	st := &fakeMissionStore{missions: makeMissions(3, 1)}
	r := New(st, nil, 0.5, nil)

	_, err := r.List(context.Background(), 1, ListOptions{Status: "Running"})
	assert.Error(t, err)
}

func TestListStatusFilter(t *testing.T) {
	missions := makeMissions(4, 1)
	missions[0].Status = store.MissionFailed
	missions[1].Status = store.MissionInitializing
	st := &fakeMissionStore{missions: missions}
	r := New(st, nil, 0.5, nil)

	result, err := r.List(context.Background(), 1, ListOptions{Status: "Failed"})
	require.NoError(t, err)
	require.Len(t, result.Missions, 1)
	assert.Equal(t, store.MissionFailed, result.Missions[0].Status)

	all, err := r.List(context.Background(), 1, ListOptions{Status: "All"})
	require.NoError(t, err)
	assert.Len(t, all.Missions, 4)
}

func TestListHybridUsesVectorSearch(t *testing.T) {
	missions := makeMissions(2, 1)
	distance := 0.12
	st := &fakeMissionStore{
		missions: missions,
		searchResults: []*store.MissionWithDistance{
			{Mission: missions[1], Distance: &distance},
			{Mission: missions[0], Distance: nil},
		},
	}
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2}}
	r := New(st, embedder, 0.5, nil)

	result, err := r.List(context.Background(), 1, ListOptions{Search: "quantum"})
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, 1, st.searchCalls)
	require.Len(t, result.Missions, 2)
	assert.Equal(t, missions[1].UID, result.Missions[0].UID)

	require.NotNil(t, st.lastSearchOpts)
	assert.Equal(t, "quantum", st.lastSearchOpts.Search)
	assert.Equal(t, []float32{0.1, 0.2}, st.lastSearchOpts.Vector)
	assert.Equal(t, 0.5, st.lastSearchOpts.Threshold)

	// A short page is an exact total.
	assert.Equal(t, Pagination{Total: 2, Page: 1, Pages: 1}, result.Pagination)
}

func TestListHybridFullPageGetsPlaceholderTotal(t *testing.T) {
	missions := makeMissions(5, 1)
	results := make([]*store.MissionWithDistance, 0, len(missions))
	for _, mission := range missions {
		results = append(results, &store.MissionWithDistance{Mission: mission})
	}
	st := &fakeMissionStore{missions: missions, searchResults: results}
	r := New(st, &stubEmbedder{vector: []float32{0.1}}, 0.5, nil)

	result, err := r.List(context.Background(), 1, ListOptions{Search: "quantum", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, Pagination{Total: placeholderTotal, Page: 1, Pages: 20}, result.Pagination)
}

func TestListFallbackWhenEmbedderFails(t *testing.T) {
	missions := makeMissions(3, 1)
	missions[0].Title = "quantum computing basics"
	st := &fakeMissionStore{missions: missions}
	embedder := &stubEmbedder{err: errors.New("embedding service down")}
	r := New(st, embedder, 0.5, nil)

	result, err := r.List(context.Background(), 1, ListOptions{Search: "Quantum"})
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, 0, st.searchCalls)
	require.Len(t, result.Missions, 1)
	assert.Equal(t, missions[0].UID, result.Missions[0].UID)
	assert.Equal(t, Pagination{Total: 1, Page: 1, Pages: 1}, result.Pagination)
}

func TestListFallbackWhenEmbedderMissing(t *testing.T) {
	missions := makeMissions(3, 1)
	missions[2].Title = "dark matter survey"
	st := &fakeMissionStore{missions: missions}
	r := New(st, nil, 0.5, nil)

	result, err := r.List(context.Background(), 1, ListOptions{Search: "dark matter"})
	require.NoError(t, err)
	assert.Equal(t, 0, st.searchCalls)
	require.Len(t, result.Missions, 1)
	assert.Equal(t, missions[2].UID, result.Missions[0].UID)
}

func TestListRepeatable(t *testing.T) {
	missions := makeMissions(7, 1)
	missions[0].Title = "quantum computing basics"
	st := &fakeMissionStore{missions: missions}
	r := New(st, nil, 0.5, nil)

	// Listing twice with no writes in between returns the same page both times.
	first, err := r.List(context.Background(), 1, ListOptions{Page: 1, Limit: 5})
	require.NoError(t, err)
	second, err := r.List(context.Background(), 1, ListOptions{Page: 1, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	first, err = r.List(context.Background(), 1, ListOptions{Search: "Quantum"})
	require.NoError(t, err)
	second, err = r.List(context.Background(), 1, ListOptions{Search: "Quantum"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestListScopedToCreator(t *testing.T) {
	missions := append(makeMissions(2, 1), makeMissions(3, 2)...)
	st := &fakeMissionStore{missions: missions}
	r := New(st, nil, 0.5, nil)

	result, err := r.List(context.Background(), 2, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Missions, 3)
	assert.Equal(t, 3, result.Pagination.Total)
}

func TestGetOne(t *testing.T) {
	missions := makeMissions(1, 1)
	st := &fakeMissionStore{
		missions: missions,
		notes: []*store.Note{
			{ID: 1, UID: "note-1", MissionID: 1, Content: "first"},
			{ID: 2, UID: "note-2", MissionID: 1, Content: "second"},
			{ID: 3, UID: "note-3", MissionID: 99, Content: "other mission"},
		},
	}
	r := New(st, nil, 0.5, nil)

	detail, err := r.GetOne(context.Background(), 1, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", detail.Mission.UID)
	assert.Len(t, detail.Notes, 2)
}

func TestGetOneNotFound(t *testing.T) {
	st := &fakeMissionStore{missions: makeMissions(1, 1)}
	r := New(st, nil, 0.5, nil)

	_, err := r.GetOne(context.Background(), 1, "no-such-uid")
	assert.ErrorIs(t, err, ErrNotFound)

	// Another creator's mission is indistinguishable from a missing one.
	_, err = r.GetOne(context.Background(), 2, "uid-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		total, page, limit int
		want               Pagination
	}{
		{0, 1, 5, Pagination{Total: 0, Page: 1, Pages: 1}},
		{1, 1, 5, Pagination{Total: 1, Page: 1, Pages: 1}},
		{5, 1, 5, Pagination{Total: 5, Page: 1, Pages: 1}},
		{6, 2, 5, Pagination{Total: 6, Page: 2, Pages: 2}},
		{100, 3, 5, Pagination{Total: 100, Page: 3, Pages: 20}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, paginate(tt.total, tt.page, tt.limit))
	}
}
