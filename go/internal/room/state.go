package room

import (
	"github.com/google/uuid"
	"github.com/mcdev12/planpoker/go/internal/models"
)

type state struct {
	sessionID uuid.UUID
	taskName  string
	revealed  bool
	closed    bool
	userName  string
	localVote *models.CardValue
	roster    []models.Vote
}

func (st *state) snapshot(version uint64) Snapshot {
	return Snapshot{
		Version:   version,
		SessionID: st.sessionID,
		TaskName:  st.taskName,
		Revealed:  st.revealed,
		Closed:    st.closed,
		UserName:  st.userName,
		LocalVote: models.CloneCard(st.localVote),
		Roster:    models.CloneVotes(st.roster),
	}
}

type requirement int

const (
	needSession requirement = iota
	needIdentity
)

func (st *state) check(req requirement) error {
	if st.sessionID == uuid.Nil {
		return ErrNoActiveContext
	}
	if st.closed {
		return ErrSessionClosed
	}
	if req == needIdentity && st.userName == "" {
		return ErrNoActiveContext
	}
	return nil
}

func (st *state) indexOf(id uuid.UUID) int {
	for i, v := range st.roster {
		if v.ID == id {
			return i
		}
	}
	return -1
}

func (st *state) indexOfName(name string) int {
	for i, v := range st.roster {
		if models.SameName(v.UserName, name) {
			return i
		}
	}
	return -1
}

// upsert replaces the entry with the vote's id or appends it.
func (st *state) upsert(v models.Vote) {
	v.Value = models.CloneCard(v.Value)
	if i := st.indexOf(v.ID); i >= 0 {
		st.roster[i] = v
		return
	}
	st.roster = append(st.roster, v)
}

// field selects the parts of the state an optimistic change may touch.
type field uint8

const (
	fieldTaskName field = 1 << iota
	fieldRevealed
	fieldRoster
	fieldUserName
	fieldLocalVote
)

// preImage is the captured value of the selected fields.
type preImage struct {
	fields    field
	sessionID uuid.UUID
	saved     state
}

func capture(st *state, fields field) preImage {
	p := preImage{fields: fields, sessionID: st.sessionID}
	if fields&fieldTaskName != 0 {
		p.saved.taskName = st.taskName
	}
	if fields&fieldRevealed != 0 {
		p.saved.revealed = st.revealed
	}
	if fields&fieldRoster != 0 {
		p.saved.roster = models.CloneVotes(st.roster)
	}
	if fields&fieldUserName != 0 {
		p.saved.userName = st.userName
	}
	if fields&fieldLocalVote != 0 {
		p.saved.localVote = models.CloneCard(st.localVote)
	}
	return p
}

// restore writes back exactly the captured fields.
func (p preImage) restore(st *state) {
	if p.fields&fieldTaskName != 0 {
		st.taskName = p.saved.taskName
	}
	if p.fields&fieldRevealed != 0 {
		st.revealed = p.saved.revealed
	}
	if p.fields&fieldRoster != 0 {
		st.roster = models.CloneVotes(p.saved.roster)
	}
	if p.fields&fieldUserName != 0 {
		st.userName = p.saved.userName
	}
	if p.fields&fieldLocalVote != 0 {
		st.localVote = models.CloneCard(p.saved.localVote)
	}
}
