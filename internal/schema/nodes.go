package schema

// NodeSchema is the resource tree rooted at /nodes/<n>/... (and reused
// verbatim under /noderange/<expr>/...). It is a direct, generalized
// port of core.py's module-level `noderesources` dict — the same
// leaves, the same default plugin ("ipmi"), restructured into the
// FixedRoute/PluginRoute/PluginCollection/Opaque sum type spec.md §3
// asks for instead of a single dict shape overloaded with either a
// 'handler' key (fixed) or a 'pluginattrs'/'default' pair (plugin
// selected).
var NodeSchema = collection(map[string]*Node{
	"attributes": collection(map[string]*Node{
		"all":        route(FixedRoute{Handler: "attributes"}),
		"current":    route(FixedRoute{Handler: "attributes"}),
		"expression": route(FixedRoute{Handler: "attributes"}),
	}),
	"boot": collection(map[string]*Node{
		"nextdevice": route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
	}),
	"configuration": collection(map[string]*Node{
		"management_controller": collection(map[string]*Node{
			"alerts": collection(map[string]*Node{
				"destinations": route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			}),
			"users":         route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"licenses":      route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"net_interfaces": route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"reset":         route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"hostname":      route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"identifier":    route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"domain_name":   route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"ntp": collection(map[string]*Node{
				"enabled": route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
				"servers": route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			}),
		}),
		"storage": collection(map[string]*Node{
			"all":     route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"arrays":  route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"disks":   route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"volumes": route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
		}),
		"system": collection(map[string]*Node{
			"all":      route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"advanced": route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"clear":    route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
		}),
	}),
	"_console": collection(map[string]*Node{
		"session": route(PluginRoute{PluginAttrs: []string{"console.method"}}),
	}),
	"_shell": collection(map[string]*Node{
		"session": route(FixedRoute{Handler: "ssh"}),
	}),
	"_enclosure": collection(map[string]*Node{
		"reseat_bay": route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
	}),
	"shell": collection(map[string]*Node{
		"sessions": route(PluginCollection{PluginAttrs: nil, Default: "shellserver"}),
	}),
	"console": collection(map[string]*Node{
		// dummy sentinel: the HTTP/socket front end must upgrade the
		// connection itself (spec.md §3 Opaque, §4.2 CustomInterface).
		"session": route(Opaque{}),
		"license": route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
	}),
	"description": route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
	"events": collection(map[string]*Node{
		"hardware": collection(map[string]*Node{
			"log":    route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"decode": route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
		}),
	}),
	"health": collection(map[string]*Node{
		"hardware": route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
	}),
	"identify": route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
	"inventory": collection(map[string]*Node{
		"hardware": collection(map[string]*Node{
			"all": route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
		}),
		"firmware": collection(map[string]*Node{
			"all": route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"updates": collection(map[string]*Node{
				"active": route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			}),
		}),
	}),
	"media": collection(map[string]*Node{
		"uploads": route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
		"attach":  route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
		"detach":  route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
		"current": route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
	}),
	"power": collection(map[string]*Node{
		"state":  route(PluginRoute{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
		"reseat": route(FixedRoute{Handler: "enclosure"}),
	}),
	"sensors": collection(map[string]*Node{
		"hardware": collection(map[string]*Node{
			"all":         route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"energy":      route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"temperature": route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"power":       route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"fans":        route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
			"leds":        route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
		}),
	}),
	"support": collection(map[string]*Node{
		"servicedata": route(PluginCollection{PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"}),
	}),
})

// NodeGroupSchema is the resource tree rooted at /nodegroups/<g>/...
// (spec.md §6), mirroring core.py's nodegroup resource dict: attributes
// only, served by the "group_attributes" handler — the same
// AttributesHandler type as NodeSchema's "attributes", registered under
// a second name with the node-vs-group choice fixed at registration.
var NodeGroupSchema = collection(map[string]*Node{
	"attributes": collection(map[string]*Node{
		"all":     route(FixedRoute{Handler: "group_attributes"}),
		"current": route(FixedRoute{Handler: "group_attributes"}),
	}),
})
