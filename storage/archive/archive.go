// Package archive opens the payload archive described by config.Archive.
package archive

import (
	"errors"
	"fmt"

	"xdao.co/graphwire/config"
	"xdao.co/graphwire/storage"
	"xdao.co/graphwire/storage/grpccas"
	"xdao.co/graphwire/storage/localfs"
)

// Open returns the configured archive and a func releasing it. With neither
// Dir nor Remote set it returns a nil CAS and no error; the engine then
// archives nothing.
func Open(cfg config.Archive, opts grpccas.DialOptions) (storage.CAS, func() error, error) {
	var backends []storage.NamedCAS
	closeFn := func() error { return nil }

	if cfg.Dir != "" {
		local, err := localfs.New(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("archive: %w", err)
		}
		backends = append(backends, storage.NamedCAS{Name: "localfs", CAS: local})
	}
	if cfg.Remote != "" {
		remote, err := grpccas.Dial(cfg.Remote, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("archive: %w", err)
		}
		backends = append(backends, storage.NamedCAS{Name: "grpc", CAS: remote})
		closeFn = remote.Close
	}

	switch {
	case len(backends) == 0:
		return nil, closeFn, nil
	case len(backends) == 1:
		return backends[0].CAS, closeFn, nil
	}

	switch cfg.WritePolicy {
	case "", "first":
		cas := make([]storage.CAS, len(backends))
		for i, b := range backends {
			cas[i] = b.CAS
		}
		return storage.Fallback{Backends: cas}, closeFn, nil
	case "all":
		return storage.Replicating{Backends: backends, Copies: cfg.Copies}, closeFn, nil
	default:
		_ = closeFn()
		return nil, nil, errors.New("archive: write_policy must be first or all")
	}
}
