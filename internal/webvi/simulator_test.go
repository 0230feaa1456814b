package webvi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blevi/internal/refnum"
	"github.com/stretchr/testify/suite"
)

type SimulatorTestSuite struct {
	suite.Suite
	sim *Simulator
}

func (suite *SimulatorTestSuite) SetupTest() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	suite.sim = NewSimulator(logger)
}

func (suite *SimulatorTestSuite) TestSynchronousResult() {
	// GOAL: Verify a function that never retrieves the callback completes synchronously
	//
	// TEST SCENARIO: Register add → invoke with two numbers → sum is returned

	suite.sim.Register("lib.add", func(_ context.Context, args Args, _ JSAPI) (any, error) {
		a, err := args.Uint32(0)
		if err != nil {
			return nil, err
		}
		b, err := args.Uint32(1)
		if err != nil {
			return nil, err
		}
		return a + b, nil
	})

	got, err := suite.sim.Invoke(context.Background(), "lib.add", 2, float64(3))
	suite.Require().NoError(err)
	suite.Equal(uint32(5), got)
}

func (suite *SimulatorTestSuite) TestSynchronousErrorIsReturnedDirectly() {
	boom := errors.New("boom")
	suite.sim.Register("lib.fail", func(context.Context, Args, JSAPI) (any, error) {
		return nil, boom
	})

	_, err := suite.sim.Invoke(context.Background(), "lib.fail")
	suite.ErrorIs(err, boom)
}

func (suite *SimulatorTestSuite) TestAsynchronousCompletion() {
	// GOAL: Verify retrieving the callback switches the call to asynchronous completion
	//
	// TEST SCENARIO: Function retrieves callback, returns a throwaway value, completes later → completion value wins

	suite.sim.Register("lib.later", func(_ context.Context, _ Args, api JSAPI) (any, error) {
		done := api.GetCompletionCallback()
		go func() {
			time.Sleep(10 * time.Millisecond)
			done(refnum.Refnum(7), nil)
		}()
		return "ignored", nil
	})

	got, err := suite.sim.Invoke(context.Background(), "lib.later")
	suite.Require().NoError(err)
	suite.Equal(refnum.Refnum(7), got)
}

func (suite *SimulatorTestSuite) TestAsynchronousError() {
	boom := errors.New("user cancelled the requestDevice() chooser")
	suite.sim.Register("lib.later", func(_ context.Context, _ Args, api JSAPI) (any, error) {
		done := api.GetCompletionCallback()
		go done(nil, boom)
		return nil, nil
	})

	_, err := suite.sim.Invoke(context.Background(), "lib.later")
	suite.ErrorIs(err, boom)
}

func (suite *SimulatorTestSuite) TestCompletionDeliveredOnlyOnce() {
	// GOAL: Verify only the first completion is observed even if the callback fires twice
	//
	// TEST SCENARIO: Callback invoked with 1 then 2 → Invoke returns 1, no panic

	suite.sim.Register("lib.twice", func(_ context.Context, _ Args, api JSAPI) (any, error) {
		done := api.GetCompletionCallback()
		done(1, nil)
		done(2, nil)
		done(nil, errors.New("late"))
		return nil, nil
	})

	got, err := suite.sim.Invoke(context.Background(), "lib.twice")
	suite.Require().NoError(err)
	suite.Equal(1, got)
}

func (suite *SimulatorTestSuite) TestCallbackRetrievedTwice() {
	suite.sim.Register("lib.greedy", func(_ context.Context, _ Args, api JSAPI) (any, error) {
		first := api.GetCompletionCallback()
		api.GetCompletionCallback()
		first(true, nil)
		return nil, nil
	})

	_, err := suite.sim.Invoke(context.Background(), "lib.greedy")
	suite.ErrorIs(err, ErrCallbackAlreadyRetrieved)
}

func (suite *SimulatorTestSuite) TestReturnTypeValidation() {
	suite.sim.Register("lib.map", func(context.Context, Args, JSAPI) (any, error) {
		return map[string]int{"a": 1}, nil
	})
	suite.sim.Register("lib.asyncStruct", func(_ context.Context, _ Args, api JSAPI) (any, error) {
		api.GetCompletionCallback()(struct{}{}, nil)
		return nil, nil
	})

	_, err := suite.sim.Invoke(context.Background(), "lib.map")
	var rtErr *ReturnTypeError
	suite.Require().ErrorAs(err, &rtErr)
	suite.Contains(err.Error(), "not a type supported by the JSLI")

	_, err = suite.sim.Invoke(context.Background(), "lib.asyncStruct")
	suite.ErrorAs(err, &rtErr)
}

func (suite *SimulatorTestSuite) TestUnknownFunction() {
	_, err := suite.sim.Invoke(context.Background(), "lib.missing")
	var nfErr *FunctionNotFoundError
	suite.Require().ErrorAs(err, &nfErr)
	suite.Equal("lib.missing", nfErr.Name)
}

func (suite *SimulatorTestSuite) TestContextAbandonsWait() {
	suite.sim.Register("lib.never", func(_ context.Context, _ Args, api JSAPI) (any, error) {
		api.GetCompletionCallback()
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := suite.sim.Invoke(ctx, "lib.never")
	suite.ErrorIs(err, context.DeadlineExceeded)
}

func (suite *SimulatorTestSuite) TestNames() {
	suite.sim.Register("a.one", func(context.Context, Args, JSAPI) (any, error) { return nil, nil })
	suite.sim.Register("a.two", func(context.Context, Args, JSAPI) (any, error) { return nil, nil })
	suite.ElementsMatch([]string{"a.one", "a.two"}, suite.sim.Names())
}

func TestSimulatorTestSuite(t *testing.T) {
	suite.Run(t, new(SimulatorTestSuite))
}
