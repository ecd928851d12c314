package observable_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroom-devices/loanledger/shared/core"
	"github.com/classroom-devices/loanledger/shared/shell"
	"github.com/classroom-devices/loanledger/shared/shell/observable"
	"github.com/classroom-devices/loanledger/testutil/spies"
)

type testCommand struct{}

func (testCommand) CommandType() string { return "TestCommand" }

type testQuery struct{}

func (testQuery) QueryType() string { return "TestQuery" }

type stubCommandHandler struct {
	result string
	meta   shell.HandlerResult
	err    error
	calls  int
}

func (h *stubCommandHandler) Handle(_ context.Context, _ testCommand) (string, shell.HandlerResult, error) {
	h.calls++
	return h.result, h.meta, h.err
}

type stubQueryHandler struct {
	err error
}

func (h stubQueryHandler) Handle(_ context.Context, _ testQuery) (int, error) {
	return 7, h.err
}

func newCommandWrapper(
	t *testing.T,
	handler *stubCommandHandler,
) (*observable.CommandWrapper[testCommand, string], *spies.MetricsSpy, *spies.TracingSpy, *spies.LoggerSpy) {

	t.Helper()

	metrics := spies.NewMetricsSpy()
	tracing := spies.NewTracingSpy()
	logger := spies.NewLoggerSpy()

	wrapper, err := observable.NewCommandWrapper[testCommand, string](
		handler,
		observable.WithCommandMetrics[testCommand, string](metrics),
		observable.WithCommandTracing[testCommand, string](tracing),
		observable.WithCommandContextualLogging[testCommand, string](logger),
	)
	require.NoError(t, err)

	return wrapper, metrics, tracing, logger
}

func Test_CommandWrapper_Handle_Success(t *testing.T) {
	// arrange
	handler := &stubCommandHandler{result: "loan", meta: shell.HandlerResult{RetryAttempts: 1}}
	wrapper, metrics, tracing, logger := newCommandWrapper(t, handler)

	// act
	result, meta, err := wrapper.Handle(context.Background(), testCommand{})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "loan", result)
	assert.Equal(t, 1, meta.RetryAttempts)
	assert.Equal(t, 1, handler.calls)
	assert.True(t, metrics.HasCounter(shell.CommandHandlerCallsMetric,
		map[string]string{shell.LogAttrCommandType: "TestCommand", shell.LogAttrStatus: shell.StatusSuccess}))
	assert.True(t, metrics.HasDuration(shell.CommandHandlerDurationMetric,
		map[string]string{shell.LogAttrCommandType: "TestCommand"}))

	span, found := tracing.SpanNamed(shell.SpanNameCommandHandle)
	require.True(t, found)
	assert.True(t, span.Finished)
	assert.Equal(t, shell.StatusSuccess, span.Status)

	assert.True(t, logger.HasMessage("info", shell.LogMsgCommandStarted))
	assert.True(t, logger.HasMessage("info", shell.LogMsgCommandCompleted))
}

func Test_CommandWrapper_Handle_TypedFailureIsRejectedNotError(t *testing.T) {
	// arrange
	handler := &stubCommandHandler{err: core.QuotaExceeded(2)}
	wrapper, metrics, tracing, logger := newCommandWrapper(t, handler)

	// act
	_, _, err := wrapper.Handle(context.Background(), testCommand{})

	// assert
	assert.ErrorIs(t, err, core.ErrQuotaExceeded)
	assert.True(t, metrics.HasCounter(shell.CommandHandlerRejectedMetric,
		map[string]string{shell.LogAttrStatus: shell.StatusRejected}))

	span, _ := tracing.SpanNamed(shell.SpanNameCommandHandle)
	assert.Equal(t, shell.StatusRejected, span.Status)

	record, found := logger.Find("info", shell.LogMsgCommandRejected)
	require.True(t, found)
	reason, _ := record.Attr(shell.LogAttrFailureCause)
	assert.Equal(t, core.ReasonQuotaExceeded, reason)
	assert.False(t, logger.HasMessage("error", shell.LogMsgCommandFailed))
}

func Test_CommandWrapper_Handle_InternalErrorIsLoggedAsError(t *testing.T) {
	handler := &stubCommandHandler{err: errors.New("connection reset")}
	wrapper, metrics, _, logger := newCommandWrapper(t, handler)

	_, _, err := wrapper.Handle(context.Background(), testCommand{})

	assert.Error(t, err)
	assert.True(t, metrics.HasCounter(shell.CommandHandlerCallsMetric,
		map[string]string{shell.LogAttrStatus: shell.StatusError}))
	assert.True(t, logger.HasMessage("error", shell.LogMsgCommandFailed))
}

func Test_CommandWrapper_WorksWithoutCollectors(t *testing.T) {
	handler := &stubCommandHandler{result: "ok"}
	wrapper, err := observable.NewCommandWrapper[testCommand, string](handler)
	require.NoError(t, err)

	result, _, err := wrapper.Handle(context.Background(), testCommand{})

	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func Test_QueryWrapper_Handle(t *testing.T) {
	// arrange
	metrics := spies.NewMetricsSpy()
	logger := spies.NewLoggerSpy()
	wrapper, err := observable.NewQueryWrapper[testQuery, int](
		stubQueryHandler{},
		observable.WithQueryMetrics[testQuery, int](metrics),
		observable.WithQueryLogging[testQuery, int](logger),
	)
	require.NoError(t, err)

	// act
	result, err := wrapper.Handle(context.Background(), testQuery{})

	// assert
	require.NoError(t, err)
	assert.Equal(t, 7, result)
	assert.True(t, metrics.HasCounter(shell.QueryHandlerCallsMetric,
		map[string]string{shell.LogAttrQueryType: "TestQuery", shell.LogAttrStatus: shell.StatusSuccess}))
	assert.True(t, logger.HasMessage("info", shell.LogMsgQueryCompleted))
}

func Test_QueryWrapper_Handle_Error(t *testing.T) {
	metrics := spies.NewMetricsSpy()
	wrapper, err := observable.NewQueryWrapper[testQuery, int](
		stubQueryHandler{err: context.DeadlineExceeded},
		observable.WithQueryMetrics[testQuery, int](metrics),
	)
	require.NoError(t, err)

	_, err = wrapper.Handle(context.Background(), testQuery{})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, metrics.HasCounter(shell.QueryHandlerCallsMetric,
		map[string]string{shell.LogAttrStatus: shell.StatusTimeout}))
}
