package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"freightline/internal/types"
)

func TestSettingsRepository_Value(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*string) = "true"
			return nil
		},
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(row)

	value, ok, err := repo.Value(ctx, "org_1", types.SettingOrderConsolidationEnabled)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", value)
	db.AssertExpectations(t)
}

func TestSettingsRepository_Value_AbsentIsNotAnError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	row := &mockRow{
		scanFn: func(...any) error {
			return pgx.ErrNoRows
		},
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(row)

	value, ok, err := repo.Value(ctx, "org_1", "missing_setting")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
	db.AssertExpectations(t)
}

func TestSettingsRepository_Value_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	row := &mockRow{
		scanFn: func(...any) error {
			return errors.New("connection refused")
		},
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(row)

	_, _, err := repo.Value(ctx, "org_1", "any")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
	db.AssertExpectations(t)
}

func settingScan(key, value string) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = key
		*dest[1].(*string) = value
		return nil
	}
}

func TestSettingsRepository_Values(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	rows := newMockRows(
		settingScan(types.SettingTripInfoConfidential, "true"),
		settingScan(types.SettingTripDisplayRules, `{"showCustomer":false}`),
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(rows, nil)

	// Three requested, two stored: absent keys are simply missing.
	result, err := repo.Values(ctx, "org_1", []string{
		types.SettingTripInfoConfidential,
		types.SettingTripDisplayRules,
		"unstored_key",
	})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "true", result[types.SettingTripInfoConfidential])
	assert.NotContains(t, result, "unstored_key")
	db.AssertExpectations(t)
}

func TestSettingsRepository_Values_EmptyKeysSkipsQuery(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSettingsRepository(db)

	result, err := repo.Values(context.Background(), "org_1", nil)
	require.NoError(t, err)
	assert.Empty(t, result)
	db.AssertNotCalled(t, "Query")
}

func TestSettingsRepository_Values_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(nil, errors.New("connection reset"))

	_, err := repo.Values(ctx, "org_1", []string{"a"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
	db.AssertExpectations(t)
}
