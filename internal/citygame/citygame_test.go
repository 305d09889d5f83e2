package citygame

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"citywords/entity"
	"citywords/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLastLetter(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Москва", "А"},
		{"Тверь", "Р"},
		{"Сочи", "И"},
		{"Барнаул", "Л"},
	}
	for _, c := range cases {
		if got := lastLetter(c.name); got != c.want {
			t.Errorf("lastLetter(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestLastLetterSkipsTrailingSilent(t *testing.T) {
	// Суздаль ends in ь, which must be skipped to reach л.
	if got := lastLetter("Суздаль"); got != "Л" {
		t.Errorf("lastLetter(Суздаль) = %q, want Л", got)
	}
}

func TestLastLetterAllSilent(t *testing.T) {
	if got := lastLetter("ьыъ"); got != "" {
		t.Errorf("lastLetter(all-silent) = %q, want empty", got)
	}
}

type fakeCityStore struct {
	cities          map[string]*entity.City
	candidates      map[string][]*entity.City
	usedByID        map[int64]bool
	markUsedCalls   []int64
	nextLetter      string
	deactivated     bool
	candidateErr    error
}

func (f *fakeCityStore) FindCityByName(_ context.Context, name string) (*entity.City, error) {
	c, ok := f.cities[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeCityStore) CandidateCities(_ context.Context, _ int64, letter string) ([]*entity.City, error) {
	if f.candidateErr != nil {
		return nil, f.candidateErr
	}
	return f.candidates[letter], nil
}

func (f *fakeCityStore) MarkCityUsed(_ context.Context, _, cityId int64) error {
	f.markUsedCalls = append(f.markUsedCalls, cityId)
	f.usedByID[cityId] = true
	return nil
}

func (f *fakeCityStore) CityUsed(_ context.Context, _, cityId int64) (bool, error) {
	return f.usedByID[cityId], nil
}

func (f *fakeCityStore) SetNextLetter(_ context.Context, _ int64, letter string) error {
	f.nextLetter = letter
	return nil
}

func (f *fakeCityStore) DeactivateSession(_ context.Context, _ int64) error {
	f.deactivated = true
	return nil
}

func newFakeCityStore() *fakeCityStore {
	return &fakeCityStore{
		cities:     map[string]*entity.City{},
		candidates: map[string][]*entity.City{},
		usedByID:   map[int64]bool{},
	}
}

func TestPickCityNoCandidatesEndsSessionBotLoses(t *testing.T) {
	st := newFakeCityStore()
	e := New(st, testLogger())
	sess := &entity.GameSession{Id: 1}

	out, err := e.PickCity(context.Background(), sess, "Ъ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.SessionOver || !out.BotLost {
		t.Errorf("expected bot loss outcome, got %+v", out)
	}
	if !st.deactivated {
		t.Error("expected session to be deactivated on bot loss")
	}
}

func TestPickCitySelectsAndMarksUsed(t *testing.T) {
	st := newFakeCityStore()
	moscow := &entity.City{Id: 1, Name: "Москва"}
	st.candidates["М"] = []*entity.City{moscow}
	e := New(st, testLogger())
	sess := &entity.GameSession{Id: 1}

	out, err := e.PickCity(context.Background(), sess, "М")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SessionOver {
		t.Error("expected game to continue")
	}
	if !st.usedByID[1] {
		t.Error("expected city to be marked used")
	}
	if st.nextLetter != "А" {
		t.Errorf("next letter = %q, want А", st.nextLetter)
	}
}

func TestCheckCityUnknownCity(t *testing.T) {
	st := newFakeCityStore()
	e := New(st, testLogger())
	sess := &entity.GameSession{Id: 1, NextStartLetter: "М"}

	out, err := e.CheckCity(context.Background(), sess, "Атлантида")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "No such city." {
		t.Errorf("text = %q", out.Text)
	}
}

func TestCheckCityAlreadyUsed(t *testing.T) {
	st := newFakeCityStore()
	tver := &entity.City{Id: 2, Name: "Тверь"}
	st.cities["Тверь"] = tver
	st.usedByID[2] = true
	e := New(st, testLogger())
	sess := &entity.GameSession{Id: 1, NextStartLetter: "Т"}

	out, err := e.CheckCity(context.Background(), sess, "Тверь")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "That city has already been played." {
		t.Errorf("text = %q", out.Text)
	}
}

func TestCheckCityWrongLetter(t *testing.T) {
	st := newFakeCityStore()
	sochi := &entity.City{Id: 3, Name: "Сочи"}
	st.cities["Сочи"] = sochi
	e := New(st, testLogger())
	sess := &entity.GameSession{Id: 1, NextStartLetter: "М"}

	out, err := e.CheckCity(context.Background(), sess, "Сочи")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "Wrong letter, yours is М." {
		t.Errorf("text = %q", out.Text)
	}
	if st.usedByID[3] {
		t.Error("rejected city should not be marked used")
	}
}

func TestCheckCityAcceptedRecursesIntoPickCity(t *testing.T) {
	st := newFakeCityStore()
	sochi := &entity.City{Id: 3, Name: "Сочи"}
	st.cities["Сочи"] = sochi
	barnaul := &entity.City{Id: 4, Name: "Барнаул"}
	st.candidates["И"] = []*entity.City{barnaul}
	e := New(st, testLogger())
	sess := &entity.GameSession{Id: 1, NextStartLetter: "С"}

	out, err := e.CheckCity(context.Background(), sess, "Сочи")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SessionOver {
		t.Error("expected game to continue")
	}
	if !st.usedByID[3] || !st.usedByID[4] {
		t.Error("expected both accepted and bot-picked cities marked used")
	}
	if st.nextLetter != "Л" {
		t.Errorf("next letter = %q, want Л", st.nextLetter)
	}
}

func TestRandomStartLetterIsFromPool(t *testing.T) {
	letter := RandomStartLetter()
	found := false
	for _, l := range startLetters {
		if l == letter {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("RandomStartLetter() = %q not in pool", letter)
	}
}
