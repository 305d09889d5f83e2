package wordsgame

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"citywords/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWordsStore struct {
	session      *entity.GameSession
	players      map[int64]*entity.UserGameSession
	words        map[string]*entity.Word
	usedInSess   map[string]bool
	nextUser     int64
	nextLetter   string
	deactivated  bool
	pollId       string
	pollWord     string
	votes        map[int64]entity.PollVote
	pointsByUser map[int64]int
	sessionWords []string
}

func newFakeWordsStore(sess *entity.GameSession) *fakeWordsStore {
	return &fakeWordsStore{
		session:      sess,
		players:      map[int64]*entity.UserGameSession{},
		words:        map[string]*entity.Word{},
		usedInSess:   map[string]bool{},
		votes:        map[int64]entity.PollVote{},
		pointsByUser: map[int64]int{},
	}
}

func (f *fakeWordsStore) GetSession(_ context.Context, id int64) (*entity.GameSession, error) {
	if f.session == nil || f.session.Id != id {
		return nil, errNotFound
	}
	return f.session, nil
}

func (f *fakeWordsStore) DeactivateSession(_ context.Context, _ int64) error {
	f.deactivated = true
	f.session.Active = false
	return nil
}

func (f *fakeWordsStore) SetNextLetter(_ context.Context, _ int64, letter string) error {
	f.nextLetter = letter
	f.session.NextStartLetter = letter
	return nil
}

func (f *fakeWordsStore) SetNextUser(_ context.Context, _ int64, userId int64) error {
	f.nextUser = userId
	f.session.NextUserId = userId
	return nil
}

func (f *fakeWordsStore) SetCurrentPoll(_ context.Context, _ int64, pollId, word string) error {
	f.pollId = pollId
	f.pollWord = word
	f.session.CurrentPollId = pollId
	f.session.PendingPollWord = word
	return nil
}

func (f *fakeWordsStore) ClearCurrentPoll(_ context.Context, _ int64) error {
	f.pollId = ""
	f.pollWord = ""
	f.session.CurrentPollId = ""
	f.session.PendingPollWord = ""
	return nil
}

func (f *fakeWordsStore) AppendSessionWord(_ context.Context, _ int64, word string) error {
	f.sessionWords = append(f.sessionWords, word)
	return nil
}

func (f *fakeWordsStore) GetPlayer(_ context.Context, _, userId int64) (*entity.UserGameSession, error) {
	p, ok := f.players[userId]
	if !ok {
		return nil, errNotFound
	}
	return p, nil
}

func (f *fakeWordsStore) AliveTeam(_ context.Context, _ int64) ([]*entity.UserGameSession, error) {
	var out []*entity.UserGameSession
	for _, p := range f.players {
		if p.Alive() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeWordsStore) AllPlayers(_ context.Context, _ int64) ([]*entity.UserGameSession, error) {
	var out []*entity.UserGameSession
	for _, p := range f.players {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeWordsStore) DecrementLife(_ context.Context, _, userId int64) error {
	f.players[userId].Lives--
	return nil
}

func (f *fakeWordsStore) RightWord(_ context.Context, _, userId int64) error {
	f.players[userId].Points++
	f.players[userId].Round++
	return nil
}

func (f *fakeWordsStore) SetPollVote(_ context.Context, _, userId int64, vote entity.PollVote) error {
	f.votes[userId] = vote
	return nil
}

func (f *fakeWordsStore) ResetPollVotes(_ context.Context, _ int64) error {
	f.votes = map[int64]entity.PollVote{}
	return nil
}

func (f *fakeWordsStore) TallyPollVotes(_ context.Context, _ int64) (yes, no int, err error) {
	for _, v := range f.votes {
		switch v {
		case entity.PollVoteYes:
			yes++
		case entity.PollVoteNo:
			no++
		}
	}
	return yes, no, nil
}

func (f *fakeWordsStore) FindWordByName(_ context.Context, name string) (*entity.Word, error) {
	w, ok := f.words[name]
	if !ok {
		return nil, errNotFound
	}
	return w, nil
}

func (f *fakeWordsStore) EnsureWord(_ context.Context, name string) (int64, error) {
	if w, ok := f.words[name]; ok {
		return w.Id, nil
	}
	id := int64(len(f.words) + 1)
	f.words[name] = &entity.Word{Id: id, Name: name}
	return id, nil
}

func (f *fakeWordsStore) MarkWordUsed(_ context.Context, _, _ int64) error {
	return nil
}

func (f *fakeWordsStore) WordUsedInSession(_ context.Context, _ int64, name string) (bool, error) {
	return f.usedInSess[name], nil
}

func (f *fakeWordsStore) AddPoints(_ context.Context, userId int64, points int) error {
	f.pointsByUser[userId] += points
	return nil
}

type stubErr struct{ s string }

func (e *stubErr) Error() string { return e.s }

var errNotFound = &stubErr{s: "not found"}

type fakeDict struct {
	nouns map[string]bool
	err   error
}

func (d *fakeDict) IsNoun(_ context.Context, word string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.nouns[word], nil
}

func newTestSession() *entity.GameSession {
	return &entity.GameSession{
		Id:              1,
		Kind:            entity.GameGroup,
		Active:          true,
		NextStartLetter: "К",
		NextUserId:      10,
		Anonymous:       true,
		PollTimeSec:     20,
	}
}

func TestPickLeaderEndsGameWhenNoneAlive(t *testing.T) {
	sess := newTestSession()
	st := newFakeWordsStore(sess)
	e := New(st, &fakeDict{}, testLogger())

	out, err := e.PickLeader(context.Background(), sess, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.SessionOver {
		t.Error("expected game over with no alive players")
	}
	if !st.deactivated {
		t.Error("expected session deactivated")
	}
}

func TestPickLeaderEndsGameWhenLastPlayerHasOneLife(t *testing.T) {
	sess := newTestSession()
	st := newFakeWordsStore(sess)
	st.players[10] = &entity.UserGameSession{UserId: 10, Lives: 1, Round: 2}
	e := New(st, &fakeDict{}, testLogger())

	out, err := e.PickLeader(context.Background(), sess, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.SessionOver {
		t.Error("expected game over: last player standing with 1 life")
	}
}

func TestPickLeaderExcludesPreviousPlayerWhenMultipleAlive(t *testing.T) {
	sess := newTestSession()
	sess.NextUserId = 10
	st := newFakeWordsStore(sess)
	st.players[10] = &entity.UserGameSession{UserId: 10, Lives: 2, Round: 1}
	st.players[20] = &entity.UserGameSession{UserId: 20, Lives: 2, Round: 1}
	e := New(st, &fakeDict{}, testLogger())

	out, err := e.PickLeader(context.Background(), sess, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TargetUserId != 20 {
		t.Errorf("expected player 20 to be picked (excluding previous player 10), got %d", out.TargetUserId)
	}
}

func TestPickLeaderForcedUserBypassesExclusion(t *testing.T) {
	sess := newTestSession()
	sess.NextUserId = 10
	st := newFakeWordsStore(sess)
	st.players[10] = &entity.UserGameSession{UserId: 10, Lives: 2, Round: 1}
	st.players[20] = &entity.UserGameSession{UserId: 20, Lives: 2, Round: 1}
	e := New(st, &fakeDict{}, testLogger())

	out, err := e.PickLeader(context.Background(), sess, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TargetUserId != 10 {
		t.Errorf("expected forced user 10 to be re-prompted, got %d", out.TargetUserId)
	}
}

func TestPickLeaderNoOpWhilePollOpen(t *testing.T) {
	sess := newTestSession()
	sess.CurrentPollId = "123"
	st := newFakeWordsStore(sess)
	e := New(st, &fakeDict{}, testLogger())

	out, err := e.PickLeader(context.Background(), sess, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "" || out.ForceReply || out.OpenPoll || out.SessionOver {
		t.Errorf("expected no-op outcome while poll is open, got %+v", out)
	}
}

func TestSlowPlayerDropsWhenRoundAdvanced(t *testing.T) {
	sess := newTestSession()
	sess.NextUserId = 10
	st := newFakeWordsStore(sess)
	st.players[10] = &entity.UserGameSession{UserId: 10, Lives: 3, Round: 5}
	e := New(st, &fakeDict{}, testLogger())

	out, err := e.SlowPlayer(context.Background(), sess.Id, 10, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "" || out.SessionOver {
		t.Error("expected no-op for stale round")
	}
	if st.players[10].Lives != 3 {
		t.Error("life should not be decremented for a stale timeout")
	}
}

func TestSlowPlayerDecrementsLifeWhenCurrent(t *testing.T) {
	sess := newTestSession()
	sess.NextUserId = 10
	st := newFakeWordsStore(sess)
	st.players[10] = &entity.UserGameSession{UserId: 10, Lives: 2, Round: 4}
	st.players[20] = &entity.UserGameSession{UserId: 20, Lives: 2, Round: 1}
	e := New(st, &fakeDict{}, testLogger())

	_, err := e.SlowPlayer(context.Background(), sess.Id, 10, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.players[10].Lives != 1 {
		t.Errorf("expected life decremented, got %d", st.players[10].Lives)
	}
}

func TestCheckWordWrongTurnCostsLifeNoTurnAdvance(t *testing.T) {
	sess := newTestSession()
	sess.NextUserId = 10
	st := newFakeWordsStore(sess)
	st.players[10] = &entity.UserGameSession{UserId: 10, Lives: 3}
	st.players[99] = &entity.UserGameSession{UserId: 99, Lives: 3}
	e := New(st, &fakeDict{}, testLogger())

	out, err := e.CheckWord(context.Background(), sess, 99, "кот")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.players[99].Lives != 2 {
		t.Error("expected wrong-turn submission to cost a life")
	}
	if st.nextUser != 0 {
		t.Error("expected turn not to advance on a wrong-turn submission")
	}
	_ = out
}

func TestCheckWordWrongStartLetterNoPenalty(t *testing.T) {
	sess := newTestSession()
	sess.NextUserId = 10
	sess.NextStartLetter = "М"
	st := newFakeWordsStore(sess)
	st.players[10] = &entity.UserGameSession{UserId: 10, Lives: 3, Round: 1}
	e := New(st, &fakeDict{}, testLogger())

	_, err := e.CheckWord(context.Background(), sess, 10, "кот")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.players[10].Lives != 3 {
		t.Error("wrong start letter must not cost a life")
	}
}

func TestCheckWordRepeatedWordNoPenalty(t *testing.T) {
	sess := newTestSession()
	sess.NextUserId = 10
	sess.NextStartLetter = "К"
	st := newFakeWordsStore(sess)
	st.usedInSess["кот"] = true
	st.players[10] = &entity.UserGameSession{UserId: 10, Lives: 3, Round: 1}
	e := New(st, &fakeDict{}, testLogger())

	_, err := e.CheckWord(context.Background(), sess, 10, "кот")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.players[10].Lives != 3 {
		t.Error("repeated word must not cost a life")
	}
}

func TestCheckWordAcceptedNounAdvancesTurn(t *testing.T) {
	sess := newTestSession()
	sess.NextUserId = 10
	sess.NextStartLetter = "К"
	st := newFakeWordsStore(sess)
	st.players[10] = &entity.UserGameSession{UserId: 10, Lives: 3, Round: 1}
	e := New(st, &fakeDict{nouns: map[string]bool{"кот": true}}, testLogger())

	out, err := e.CheckWord(context.Background(), sess, 10, "кот")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.OpenPoll {
		t.Error("known noun should not open a poll")
	}
	if st.players[10].Points != 1 || st.players[10].Round != 2 {
		t.Errorf("expected points/round incremented together, got %+v", st.players[10])
	}
}

func TestCheckWordUnknownWordOpensPoll(t *testing.T) {
	sess := newTestSession()
	sess.NextUserId = 10
	sess.NextStartLetter = "К"
	st := newFakeWordsStore(sess)
	st.players[10] = &entity.UserGameSession{UserId: 10, Lives: 3, Round: 1}
	e := New(st, &fakeDict{}, testLogger())

	out, err := e.CheckWord(context.Background(), sess, 10, "кот")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.OpenPoll {
		t.Error("expected a poll to be opened for an unknown word")
	}
	if out.PollWord != "кот" {
		t.Errorf("poll word = %q", out.PollWord)
	}
}

func TestPollResultAnonymousUsesBroadcastTally(t *testing.T) {
	sess := newTestSession()
	sess.NextUserId = 10
	sess.Anonymous = true
	sess.CurrentPollId = "pending"
	sess.PendingPollWord = "кот"
	st := newFakeWordsStore(sess)
	st.players[10] = &entity.UserGameSession{UserId: 10, Lives: 3, Round: 1}
	e := New(st, &fakeDict{}, testLogger())

	out, err := e.PollResult(context.Background(), sess, "кот", 3, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.OpenPoll {
		t.Error("should not reopen a poll")
	}
	if st.players[10].Points != 1 {
		t.Error("expected word accepted on yes-majority broadcast tally")
	}
	if st.pollId != "" {
		t.Error("expected poll cleared")
	}
}

func TestPollResultRejectedDecrementsLife(t *testing.T) {
	sess := newTestSession()
	sess.NextUserId = 10
	sess.Anonymous = true
	sess.CurrentPollId = "pending"
	sess.PendingPollWord = "кот"
	st := newFakeWordsStore(sess)
	st.players[10] = &entity.UserGameSession{UserId: 10, Lives: 3, Round: 1}
	e := New(st, &fakeDict{}, testLogger())

	_, err := e.PollResult(context.Background(), sess, "кот", 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.players[10].Lives != 2 {
		t.Error("expected a life lost on poll rejection")
	}
}

func TestPollResultNonAnonymousUsesRecordedVotes(t *testing.T) {
	sess := newTestSession()
	sess.NextUserId = 10
	sess.Anonymous = false
	sess.CurrentPollId = "pending"
	sess.PendingPollWord = "кот"
	st := newFakeWordsStore(sess)
	st.players[10] = &entity.UserGameSession{UserId: 10, Lives: 3, Round: 1}
	st.votes[100] = entity.PollVoteYes
	st.votes[200] = entity.PollVoteYes
	st.votes[300] = entity.PollVoteNo
	e := New(st, &fakeDict{}, testLogger())

	// broadcast tally says reject, but recorded per-voter tally says accept;
	// non-anonymous polls must trust the recorded votes, not the broadcast.
	out, err := e.PollResult(context.Background(), sess, "кот", 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.OpenPoll {
		t.Error("should not reopen a poll")
	}
	if st.players[10].Points != 1 {
		t.Error("expected recorded votes (2 yes vs 1 no) to accept the word")
	}
}

func TestBindPollThenRebindPreservesWord(t *testing.T) {
	sess := newTestSession()
	st := newFakeWordsStore(sess)
	e := New(st, &fakeDict{}, testLogger())

	if err := e.BindPoll(context.Background(), sess, pendingPlaceholder, "слон"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.CurrentPollId != pendingPlaceholder || sess.PendingPollWord != "слон" {
		t.Fatalf("unexpected session state after bind: %+v", sess)
	}

	if err := e.RebindPoll(context.Background(), sess, "tg-poll-42"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.CurrentPollId != "tg-poll-42" {
		t.Errorf("expected poll id rebound, got %q", sess.CurrentPollId)
	}
	if sess.PendingPollWord != "слон" {
		t.Errorf("expected pending word preserved across rebind, got %q", sess.PendingPollWord)
	}
}

const pendingPlaceholder = "pending"
