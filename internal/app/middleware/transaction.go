package middleware

import (
	"context"

	"carshare/internal/app/commands"
	"carshare/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction runs each command inside a unit of work that is committed only
// when the handler succeeds.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (res any, err error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, execCtx, managed, err := uow.Acquire(ctx, factory, opts)
			if err != nil {
				return nil, err
			}
			defer uow.Finish(execCtx, unit, managed, &err)

			res, err = next.Dispatch(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
