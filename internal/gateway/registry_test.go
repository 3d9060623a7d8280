package gateway_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmorales/supplysync-backend/internal/gateway"
	"github.com/rmorales/supplysync-backend/internal/gateway/mock"
	"github.com/rmorales/supplysync-backend/pkg/enums"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
)

func TestRegistryLookup(t *testing.T) {
	reg := gateway.NewRegistry()
	require.NoError(t, reg.Register(enums.SupplierClientMock, mock.NewGatewayClient))

	client, err := reg.New(enums.SupplierClientMock)
	require.NoError(t, err)
	require.NotNil(t, client)

	_, err = reg.New(enums.SupplierClientREST)
	assert.Error(t, err)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := gateway.NewRegistry()
	require.NoError(t, reg.Register(enums.SupplierClientMock, mock.NewGatewayClient))
	assert.Error(t, reg.Register(enums.SupplierClientMock, mock.NewGatewayClient))
}

func TestRegistryRejectsUnknownType(t *testing.T) {
	reg := gateway.NewRegistry()
	assert.Error(t, reg.Register(enums.SupplierClientType("soap"), mock.NewGatewayClient))
	assert.Error(t, reg.Register(enums.SupplierClientMock, nil))
}

func TestCallsBeforeInitializeFail(t *testing.T) {
	client := mock.New()

	_, err := client.GetProduct(context.Background(), "SKU-1")
	require.Error(t, err)

	var api *gateway.APIError
	require.True(t, errors.As(err, &api))
	assert.Equal(t, gateway.CodeNotInitialized, api.Code)
}

func TestToErrorMapsTimeoutAndDependency(t *testing.T) {
	timeoutErr := gateway.ToError(gateway.NewAPIError(gateway.CodeTimeout, "deadline"))
	coded := pkgerrors.As(timeoutErr)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeTimeout, coded.Code())

	upstream := gateway.NewAPIError(gateway.CodeUpstreamError, "boom")
	upstream.RawResponse = `{"error":"supplier exploded"}`
	depErr := gateway.ToError(upstream)
	coded = pkgerrors.As(depErr)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeDependency, coded.Code())

	details, ok := coded.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, gateway.CodeUpstreamError, details["code"])
	assert.Equal(t, upstream.RawResponse, details["raw_response"])
}

func TestFromCallErrorNormalizesDeadline(t *testing.T) {
	api := gateway.FromCallError(context.DeadlineExceeded)
	require.NotNil(t, api)
	assert.Equal(t, gateway.CodeTimeout, api.Code)
}
