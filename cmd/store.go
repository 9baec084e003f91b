// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	stderrors "errors"

	"github.com/sirupsen/logrus"

	"recordgate/cli/internal/config"
	"recordgate/cli/internal/engine"
	"recordgate/cli/internal/errors"
	"recordgate/cli/internal/gateway"
	"recordgate/cli/internal/keychain"
	"recordgate/cli/internal/rpc"
)

// resolveDSN returns the DSN for a local store: flag/env/config first, then
// the keychain entry written by `recordgate connect`, then the default SQLite
// file. source says where it came from.
func resolveDSN(c config.Config) (dsnValue, source string, err error) {
	if c.DB.DSN != "" {
		return c.DB.DSN, "configuration", nil
	}
	if km, kerr := keychain.GetManager(); kerr == nil {
		v, lerr := km.Load(keychain.KeyDSN)
		switch {
		case lerr == nil:
			return v, "OS keychain", nil
		case !stderrors.Is(lerr, keychain.ErrNotFound):
			logrus.WithError(lerr).Debug("keychain lookup failed")
		}
	} else {
		logrus.WithError(kerr).Debug("keychain unavailable")
	}
	if c.Backend == config.BackendPostgres {
		return "", "", errors.New(errors.InvalidArgument, "no PostgreSQL DSN configured; run 'recordgate connect' or pass --dsn")
	}
	d, err := config.DefaultSQLiteDSN()
	if err != nil {
		return "", "", err
	}
	return d, "default SQLite file", nil
}

// remoteToken returns the bearer token for the remote backend.
func remoteToken(c config.Config) string {
	if c.Remote.Token != "" {
		return c.Remote.Token
	}
	km, err := keychain.GetManager()
	if err != nil {
		return ""
	}
	tok, err := km.Load(keychain.KeyRemoteToken)
	if err != nil {
		return ""
	}
	return tok
}

// openEngine opens the local record store.
func openEngine(ctx context.Context, c config.Config) (*engine.Engine, error) {
	if c.ResolveBackend() == config.BackendRemote {
		return nil, errors.New(errors.InvalidArgument, "this command needs a local store; drop --addr or use --backend postgres|sqlite")
	}
	d, source, err := resolveDSN(c)
	if err != nil {
		return nil, err
	}
	logrus.WithField("source", source).Debug("using DSN")
	return engine.Open(ctx, d, engine.WithLogger(logrus.StandardLogger()))
}

// openGateway returns a gateway client over the configured backend and a
// function releasing it.
func openGateway(ctx context.Context, c config.Config) (*gateway.Client, func(), error) {
	var (
		inv     gateway.Invoker
		release func()
	)
	if c.ResolveBackend() == config.BackendRemote {
		client, err := rpc.Dial(c.Remote.Addr, rpc.DialOptions{
			Insecure:   c.Remote.Insecure,
			ServerName: c.Remote.ServerName,
			Token:      remoteToken(c),
		})
		if err != nil {
			return nil, nil, err
		}
		inv, release = client, func() { _ = client.Close() }
	} else {
		e, err := openEngine(ctx, c)
		if err != nil {
			return nil, nil, err
		}
		inv, release = e, e.Close
	}
	return gateway.New(inv, gateway.WithLogger(logrus.StandardLogger())), release, nil
}
