// Package factory instantiates pluggable backends from configuration.
//
// A backend is chosen by ModuleConfig.Type and built from the raw Conf map,
// which factories decode with Decode:
//
//	stores := factory.NewRegistry[routestore.Store]()
//	_ = stores.Register("sqlite", func(conf map[string]any) (routestore.Store, error) {
//		var c struct{ DSN string `json:"dsn"` }
//		if err := factory.Decode(conf, &c); err != nil {
//			return nil, err
//		}
//		return openSQLite(c.DSN)
//	})
//	s, err := stores.Create(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"dsn": "routes.db"}})
package factory
