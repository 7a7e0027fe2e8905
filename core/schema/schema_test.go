package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntitySchema_ID(t *testing.T) {
	s := NewEntity("users")

	id, ok := s.ID(map[string]any{"id": float64(7)})
	assert.True(t, ok)
	assert.Equal(t, "7", id)

	_, ok = s.ID(map[string]any{"name": "Amy"})
	assert.False(t, ok)

	_, ok = s.ID(map[string]any{"id": map[string]any{}})
	assert.False(t, ok)

	custom := NewEntity("accounts", WithIDAttribute("uuid"))
	id, ok = custom.ID(map[string]any{"uuid": "abc"})
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
}

func TestEntitySchema_SelfReference(t *testing.T) {
	users := NewEntity("users")
	users.Define(map[string]Schema{"friends": ArrayOf(users), "manager": users})

	target, many := users.Relations["friends"].Entity()
	assert.Same(t, users, target)
	assert.True(t, many)

	target, many = users.Relations["manager"].Entity()
	assert.Same(t, users, target)
	assert.False(t, many)

	assert.Equal(t, []string{"friends", "manager"}, users.RelationFields())
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()
	users := NewEntity("users")
	require.NoError(t, reg.Register(users))

	// re-registering the same pointer is harmless
	require.NoError(t, reg.Register(users))

	err := reg.Register(NewEntity("users"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	assert.Error(t, reg.Register(NewEntity("")))
	assert.Error(t, reg.Register(NewEntity("x", WithIDAttribute(""))))

	_, err = reg.Lookup("ghosts")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestRegistry_ValidateUnregisteredTarget(t *testing.T) {
	users := NewEntity("users")
	posts := NewEntity("posts").Define(map[string]Schema{"author": users})

	reg := NewRegistry()
	require.NoError(t, reg.Register(posts))

	err := reg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unregistered type users")

	require.NoError(t, reg.Register(users))
	assert.NoError(t, reg.Validate())
}

func TestRegistry_Referrers(t *testing.T) {
	users := NewEntity("users")
	comments := NewEntity("comments").Define(map[string]Schema{"author": users})
	posts := NewEntity("posts").Define(map[string]Schema{
		"author":   users,
		"comments": ArrayOf(comments),
	})
	reg := NewRegistry().MustRegister(users, comments, posts)

	refs := reg.Referrers("users")
	require.Len(t, refs, 2)
	assert.Equal(t, "comments", refs[0].From.Key)
	assert.Equal(t, "posts", refs[1].From.Key)
	assert.False(t, refs[1].Many)

	refs = reg.Referrers("comments")
	require.Len(t, refs, 1)
	assert.True(t, refs[0].Many)
}

const blogYAML = `
entities:
  users:
    unique: [email]
    deprecated:
      nickname: use displayName
    relations:
      friends: {type: users, many: true}
  posts:
    required: [title]
    defaults:
      title: untitled
    relations:
      author: {type: users}
      comments: {type: comments, many: true}
  comments:
    id: uuid
    owned: true
    relations:
      author: {type: users}
`

func TestLoadYAML(t *testing.T) {
	reg, err := LoadYAML(strings.NewReader(blogYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"comments", "posts", "users"}, reg.Keys())

	posts, ok := reg.Get("posts")
	require.True(t, ok)
	assert.Equal(t, []string{"title"}, posts.Required)
	assert.Equal(t, "untitled", posts.Defaults["title"])

	author, many := posts.Relations["author"].Entity()
	users, _ := reg.Get("users")
	assert.Same(t, users, author)
	assert.False(t, many)

	comments, _ := reg.Get("comments")
	assert.Equal(t, "uuid", comments.IDAttribute)
	assert.True(t, comments.Owned)

	friends, many := users.Relations["friends"].Entity()
	assert.Same(t, users, friends)
	assert.True(t, many)
	assert.Equal(t, "use displayName", users.Deprecated["nickname"])
}

func TestLoadYAML_Errors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		expect string
	}{
		{"empty", "entities: {}", "declares no entities"},
		{"undeclared target", "entities:\n  posts:\n    relations:\n      author: {type: users}\n", "undeclared type"},
		{"unknown field", "entities:\n  posts:\n    colour: red\n", "failed to decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadYAML(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expect)
		})
	}
}
