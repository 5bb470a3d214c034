package npc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formdist/internal/form"
)

type stubCharacter struct {
	ids      []Identity
	name     string
	race     *form.Form
	level    uint16
	sex      Sex
	unique   bool
	keywords []string
	held     map[form.ID]bool
}

func (c *stubCharacter) Identities() []Identity    { return c.ids }
func (c *stubCharacter) Name() string              { return c.name }
func (c *stubCharacter) Race() *form.Form          { return c.race }
func (c *stubCharacter) Level() uint16             { return c.level }
func (c *stubCharacter) Sex() Sex                  { return c.sex }
func (c *stubCharacter) IsUnique() bool            { return c.unique }
func (c *stubCharacter) IsSummonable() bool        { return false }
func (c *stubCharacter) IsChild() bool             { return false }
func (c *stubCharacter) IsLeveled() bool           { return false }
func (c *stubCharacter) IsTeammate() bool          { return false }
func (c *stubCharacter) Keywords() []string        { return c.keywords }
func (c *stubCharacter) HasForm(f *form.Form) bool { return c.held[f.ID] }

func newGuard() *stubCharacter {
	return &stubCharacter{
		ids: []Identity{
			{ID: 0x0001A66B, EditorID: "WhiterunGuard", File: "Skyrim.esm"},
			{ID: 0x02000801, EditorID: "GuardTemplate", File: "Guards.esp"},
		},
		name:     "Whiterun Guard",
		race:     &form.Form{ID: 0x13746, EditorID: "NordRace", Type: form.TypeRace},
		level:    15,
		sex:      SexMale,
		keywords: []string{"ActorTypeNPC", "Guard"},
		held:     map[form.ID]bool{0x28713: true},
	}
}

func TestSnapshotStrings(t *testing.T) {
	snap := New(newGuard())

	assert.True(t, snap.HasKeyword("guard"))
	assert.True(t, snap.HasString("WHITERUN GUARD"))
	assert.True(t, snap.HasString("GuardTemplate"))
	assert.False(t, snap.HasString("Guar"))
	assert.True(t, snap.ContainsString("Guar"))
	assert.True(t, snap.ContainsString("typenpc"))
	assert.False(t, snap.ContainsString("bandit"))
}

func TestSnapshotIdentityChain(t *testing.T) {
	snap := New(newGuard())

	assert.Equal(t, form.ID(0x0001A66B), snap.ID())
	assert.True(t, snap.InFile("skyrim.esm"))
	assert.True(t, snap.InFile("Guards.esp"), "template plugin must count")
	assert.False(t, snap.InFile("Dawnguard.esm"))
	assert.True(t, snap.HasIdentity(0x02000801))
}

func TestSnapshotHasForm(t *testing.T) {
	snap := New(newGuard())
	guardKeyword := &form.Form{ID: 0x900, EditorID: "Guard", Type: form.TypeKeyword}
	faction := &form.Form{ID: 0x28713, Type: form.TypeFaction}
	other := &form.Form{ID: 0x28714, Type: form.TypeFaction}
	template := &form.Form{ID: 0x02000801, Type: form.TypeNPC}
	list := &form.Form{ID: 0x950, Type: form.TypeFormList, Members: []*form.Form{other, faction}}
	list.Members = append(list.Members, list)

	assert.True(t, snap.HasForm(guardKeyword))
	assert.True(t, snap.HasForm(faction))
	assert.False(t, snap.HasForm(other))
	assert.True(t, snap.HasForm(template))
	assert.True(t, snap.HasForm(snap.Race()))
	assert.True(t, snap.HasForm(list))
	assert.False(t, snap.HasForm(nil))
}

func TestSnapshotWithKeywords(t *testing.T) {
	snap := New(newGuard())
	extended := snap.WithKeywords("Elite")

	require.NotSame(t, snap, extended)
	assert.True(t, extended.HasKeyword("elite"))
	assert.False(t, snap.HasKeyword("elite"), "original snapshot must not change")
	assert.True(t, extended.HasKeyword("Guard"))
}

func TestParseSex(t *testing.T) {
	for input, want := range map[string]Sex{"M": SexMale, "female": SexFemale, "": SexNone} {
		got, err := ParseSex(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSex("x")
	assert.Error(t, err)
}
