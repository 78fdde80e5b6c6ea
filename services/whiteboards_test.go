package services

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhiteboards(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, "sketcher")
	other := mkUser(t, db, "peeker")

	wb, err := CreateWhiteboard(db, owner.ID, " Sprint map ", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Sprint map", wb.Name)
	assert.JSONEq(t, `{}`, string(wb.Data))

	_, err = CreateWhiteboard(db, owner.ID, "broken", "", json.RawMessage(`{"shapes":`))
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = LoadWhiteboard(db, wb.ID, other.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	desc := "columns and arrows"
	updated, err := UpdateWhiteboard(db, wb, WhiteboardPatch{Description: &desc, Data: json.RawMessage(`{"shapes":[1,2]}`)})
	require.NoError(t, err)
	assert.Equal(t, desc, updated.Description)
	assert.JSONEq(t, `{"shapes":[1,2]}`, string(updated.Data))

	empty := "  "
	_, err = UpdateWhiteboard(db, wb, WhiteboardPatch{Name: &empty})
	assert.True(t, errors.Is(err, ErrValidation))

	list, err := ListWhiteboards(db, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.True(t, errors.Is(DeleteWhiteboard(db, wb.ID, other.ID), ErrNotFound))
	require.NoError(t, DeleteWhiteboard(db, wb.ID, owner.ID))
	list, err = ListWhiteboards(db, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
