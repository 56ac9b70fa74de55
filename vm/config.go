package vm

import (
	"slices"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Config is created with New, and is a "builder pattern" to configure a VirtualMachine.
//
// By default, it builds the VM of machine 0 of the cluster described by the resource, with the streams of
// every registered stream type. Call Config.Done to get the VirtualMachine.
type Config struct {
	resource  *Resource
	machineID int
	local     bool

	// backends, if set, restricts the device stream types materialized to these device tags.
	backends []string

	used bool
}

// New returns a configuration of a VirtualMachine for the given resource.
// If resource is nil, DefaultResource() is used.
func New(resource *Resource) *Config {
	if resource == nil {
		resource = DefaultResource()
	}
	return &Config{resource: resource}
}

// WithMachineID sets the machine of the cluster the VM runs on. It uses the remote stream descriptors of
// every stream type for that machine.
//
// It returns itself (Config) to allow cascading configuration calls.
func (c *Config) WithMachineID(machineID int) *Config {
	c.machineID = machineID
	return c
}

// Local makes the VM use the local stream descriptors: streams for the current process only, as if it were
// machine 0 of a 1 machine cluster.
//
// It returns itself (Config) to allow cascading configuration calls.
func (c *Config) Local() *Config {
	c.local = true
	return c
}

// WithBackend restricts the device stream types materialized to the ones of the given backends (device tags).
// It can be called more than once. By default, all registered device stream types are materialized.
// Stream types that share the scheduler (e.g.: control) are always materialized.
//
// It returns itself (Config) to allow cascading configuration calls.
func (c *Config) WithBackend(names ...string) *Config {
	c.backends = append(c.backends, names...)
	return c
}

// Done validates the configuration and creates the VirtualMachine.
//
// The first call freezes the stream type and instruction type registries: registering afterwards aborts.
func (c *Config) Done() (*VirtualMachine, error) {
	if c.used {
		return nil, errors.New("vm.Config.Done() called more than once, call vm.New() again to create another VirtualMachine")
	}
	c.used = true
	if err := c.resource.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "vm.New(%+v)", *c.resource)
	}
	if !c.local && (c.machineID < 0 || c.machineID >= c.resource.MachineNum) {
		return nil, errors.Errorf("vm.New().WithMachineID(%d): machine id out of range for %d machines",
			c.machineID, c.resource.MachineNum)
	}
	freezeRegistries()

	names := RegisteredStreamTypeNames()
	for _, backend := range c.backends {
		found := slices.ContainsFunc(names, func(name string) bool {
			st, _ := LookupStreamType(name)
			return !st.SharingSchedulerThread() && st.DeviceTag() == backend
		})
		if !found {
			return nil, errors.Errorf("vm.New().WithBackend(%q): no device stream type registered for it, registered stream types: %v",
				backend, names)
		}
	}

	vm := &VirtualMachine{
		resource:         c.resource,
		machineID:        c.machineID,
		local:            c.local,
		id2LogicalObject: make(map[int64]*LogicalObject),
		allocator:        newThreadOnlyAllocator(),
		streams:          make(map[StreamTypeID][]*Stream),
		streamByDevice:   make(map[StreamTypeID]map[int]*Stream),
		inFlight:         make(map[int64]*InstrChain),
	}
	if c.local {
		vm.machineID = 0
	}
	for _, name := range names {
		st, _ := LookupStreamType(name)
		if !c.materializes(st) {
			klog.V(1).Infof("vm.New(): skipping stream type %q", name)
			continue
		}
		var desc *StreamDesc
		if c.local {
			desc = st.MakeLocalStreamDesc(c.resource)
		} else {
			desc = st.MakeRemoteStreamDesc(c.resource, c.machineID)
		}
		if desc.NumStreams() == 0 {
			klog.V(1).Infof("vm.New(): no streams for stream type %q", name)
			continue
		}
		vm.materialize(desc)
	}
	klog.V(1).Infof("created %s", vm)
	return vm, nil
}

// materializes returns whether streams of st are to be created.
func (c *Config) materializes(st StreamType) bool {
	if len(c.backends) == 0 || st.SharingSchedulerThread() {
		// Infer variants share the scheduler: they follow their base stream type.
		infer, isInfer := st.(*inferStreamType)
		if !isInfer || len(c.backends) == 0 {
			return true
		}
		st = infer.base
		if st.SharingSchedulerThread() {
			return true
		}
	}
	return slices.Contains(c.backends, st.DeviceTag())
}
