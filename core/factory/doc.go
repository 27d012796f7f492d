// Package factory provides a small generic registry used to instantiate modules
// from configuration, namely solver engines and metrics sinks. A module is
// described by a type string and a map of raw settings; factories decode the
// settings into typed structs and return the implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[solver.Engine]()
//	reg.Register("search", func(conf map[string]any) (solver.Engine, error) {
//	    var c search.Config
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return search.New(c, nil), nil
//	})
//	e, err := reg.Create(factory.ModuleConfig{Type: "search", Conf: map[string]any{"lp_max_vars": 500}})
package factory
