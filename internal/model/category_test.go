package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelListUpsert(t *testing.T) {
	list := LabelList{{Name: "Home", Color: "#111111"}, {Name: "Work", Color: "#FF0000"}}

	t.Run("existing name keeps position and length", func(t *testing.T) {
		l := list.Clone()
		replaced := l.Upsert(Label{Name: "Work", Color: "#00FF00"})
		assert.True(t, replaced)
		require.Len(t, l, 2)
		assert.Equal(t, Label{Name: "Work", Color: "#00FF00"}, l[1])
		assert.Equal(t, list[0], l[0])
	})

	t.Run("new name appends", func(t *testing.T) {
		l := list.Clone()
		replaced := l.Upsert(Label{Name: "Gym", Color: "#0000FF"})
		assert.False(t, replaced)
		require.Len(t, l, 3)
		assert.Equal(t, "Gym", l[2].Name)
	})

	t.Run("names are case sensitive", func(t *testing.T) {
		l := list.Clone()
		l.Upsert(Label{Name: "work", Color: "#000000"})
		assert.Len(t, l, 3)
	})

	t.Run("nil list", func(t *testing.T) {
		var l LabelList
		l.Upsert(Label{Name: "A", Color: "red"})
		assert.Equal(t, LabelList{{Name: "A", Color: "red"}}, l)
	})
}

func TestLabelListRemove(t *testing.T) {
	l := LabelList{{Name: "Home", Color: "#111111"}, {Name: "Work", Color: "#FF0000"}}

	removed := l.Remove("Missing")
	assert.NotNil(t, removed)
	assert.Empty(t, removed)
	assert.Len(t, l, 2)

	removed = l.Remove("Home")
	assert.Equal(t, []Label{{Name: "Home", Color: "#111111"}}, removed)
	assert.Equal(t, LabelList{{Name: "Work", Color: "#FF0000"}}, l)
}

func TestNewLabelList(t *testing.T) {
	tests := []struct {
		name    string
		in      []Label
		want    LabelList
		wantErr bool
	}{
		{name: "nil", in: nil, want: LabelList{}},
		{name: "trims names", in: []Label{{Name: "  Work ", Color: "#fff"}}, want: LabelList{{Name: "Work", Color: "#fff"}}},
		{name: "empty name", in: []Label{{Name: "   ", Color: "#fff"}}, wantErr: true},
		{name: "duplicate after trim", in: []Label{{Name: "A"}, {Name: " A"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewLabelList(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLabelListSQLRoundTrip(t *testing.T) {
	var empty LabelList
	v, err := empty.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var l LabelList
	require.NoError(t, l.Scan([]byte(`[{"name":"Work","color":"#FF0000"}]`)))
	assert.Equal(t, LabelList{{Name: "Work", Color: "#FF0000"}}, l)

	require.NoError(t, l.Scan(nil))
	assert.Equal(t, LabelList{}, l)

	assert.Error(t, l.Scan(42))
}
