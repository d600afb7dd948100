package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/watchparty/internal/core"
	"github.com/dkeye/watchparty/internal/core/coretest"
)

func TestRoom_BroadcastSkipsOriginator(t *testing.T) {
	room := core.NewRoomService("s1")
	a, b, c := &coretest.RecordingConn{}, &coretest.RecordingConn{}, &coretest.RecordingConn{}
	room.AddMember(core.Member{ClientID: "a", Signal: a})
	room.AddMember(core.Member{ClientID: "b", Signal: b})
	room.AddMember(core.Member{ClientID: "c", Signal: c})

	res := room.Broadcast("a", core.Frame("hello"))

	assert.Equal(t, 2, res.SentTo)
	assert.Empty(t, res.Dropped)
	assert.Empty(t, a.Received())
	assert.Equal(t, core.Frame("hello"), b.Last())
	assert.Equal(t, core.Frame("hello"), c.Last())
}

func TestRoom_BroadcastPrunesClosed(t *testing.T) {
	room := core.NewRoomService("s1")
	a, b, c := &coretest.RecordingConn{}, &coretest.RecordingConn{}, &coretest.RecordingConn{}
	room.AddMember(core.Member{ClientID: "a", Signal: a})
	room.AddMember(core.Member{ClientID: "b", Signal: b})
	room.AddMember(core.Member{ClientID: "c", Signal: c})
	b.Close()

	res := room.Broadcast("a", core.Frame("x"))

	assert.Equal(t, 1, res.SentTo)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, core.ClientID("b"), res.Dropped[0].ClientID)
	assert.Equal(t, 1, res.Pruned)
	assert.Equal(t, []core.ClientID{"a", "c"}, room.Clients())
}

func TestRoom_BroadcastKeepsBackpressured(t *testing.T) {
	room := core.NewRoomService("s1")
	a, slow := &coretest.RecordingConn{}, &coretest.RecordingConn{Full: true}
	room.AddMember(core.Member{ClientID: "a", Signal: a})
	room.AddMember(core.Member{ClientID: "slow", Signal: slow})

	res := room.Broadcast("a", core.Frame("x"))

	assert.Equal(t, 0, res.SentTo)
	assert.Len(t, res.Dropped, 1)
	assert.Equal(t, 0, res.Pruned)
	assert.Equal(t, 2, room.MemberCount())
}

func TestRoom_RemoveMember(t *testing.T) {
	room := core.NewRoomService("s1")
	a, b := &coretest.RecordingConn{}, &coretest.RecordingConn{}
	room.AddMember(core.Member{ClientID: "a", Signal: a})
	room.AddMember(core.Member{ClientID: "a", Signal: b})

	assert.True(t, room.RemoveMember(a))
	assert.False(t, room.RemoveMember(a))
	assert.Equal(t, 1, room.MemberCount())

	// same client id on another tab still receives broadcasts from others
	room.Broadcast("z", core.Frame("x"))
	assert.Equal(t, core.Frame("x"), b.Last())
}

func TestRoom_Unicast(t *testing.T) {
	room := core.NewRoomService("s1")
	a := &coretest.RecordingConn{}

	require.NoError(t, room.Unicast(a, core.Frame("seek")))
	assert.Equal(t, core.Frame("seek"), a.Last())

	a.Close()
	assert.ErrorIs(t, room.Unicast(a, core.Frame("seek")), core.ErrChannelClosed)
}
