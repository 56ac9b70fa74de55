// govm_run builds a virtual machine for a cluster topology, runs a few instructions on it, and prints the
// resulting logical object table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gomlx/govm/device"
	"github.com/gomlx/govm/dtypes"
	"github.com/gomlx/govm/vm"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagMachines   = flag.Int("machines", 1, "Number of machines in the cluster.")
	flagMachineID  = flag.Int("machine_id", 0, "Machine of the cluster to build the virtual machine for.")
	flagCPUDevices = flag.Int("cpu_devices", 1, "Number of cpu devices per machine.")
	flagLocal      = flag.Bool("local", false, "Use local stream descriptors (current process only) instead of the cluster ones.")
	flagIDs        = flag.String("ids", "1001,1002", "Comma separated logical object ids of the host symbols to create.")
	flagDType      = flag.String("dtype", "f32", "DType of the blobs of the axpy demo.")
	flagElements   = flag.Int("elements", 4, "Number of elements of the blobs of the axpy demo, set to 0 to skip it.")
	flagAlpha      = flag.Float64("alpha", 0.5, "Alpha of the axpy demo: y = 2 + alpha * 3.")
	flagTimeout    = flag.Duration("timeout", 30*time.Second, "Maximum time to wait for the virtual machine to become idle.")
)

// demoIDBase is the first logical object id used by the axpy demo.
const demoIDBase = 1_000_000

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `govm_run builds an instruction-stream virtual machine and runs instructions on it.

$ govm_run -cpu_devices=2 -ids=1001,1002

It creates the host symbols listed in -ids, then, on every cpu device, allocates two blobs x and y,
fills them with 3 and 2 and computes y += alpha * x.

Usage:
`)
		flag.PrintDefaults()
	}
	klog.InitFlags(flag.CommandLine)
	flag.Parse()

	ids, err := parseIDs(*flagIDs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -ids: %v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}
	dtype, found := dtypes.MapOfNames[*flagDType]
	if !found {
		fmt.Fprintf(os.Stderr, "Unknown -dtype %q\n\n", *flagDType)
		flag.Usage()
		os.Exit(1)
	}

	resource := &vm.Resource{
		MachineNum:       *flagMachines,
		CPUDeviceNum:     *flagCPUDevices,
		StreamsPerThread: 1,
	}
	config := vm.New(resource).WithMachineID(*flagMachineID)
	if *flagLocal {
		config = config.Local()
	}
	machine := must.M1(config.Done())
	fmt.Printf("%s on %s\n", machine, device.CPUDescription())

	// Host symbols: type objects first, then the symbols.
	seqs := machine.Receive(vm.NewConstHostSymbolMsg(vm.Infer, ids...))
	seqs = machine.Receive(vm.NewConstHostSymbolMsg(vm.Compute, ids...).After(seqs...))

	if *flagElements > 0 {
		cpuStreams := machine.Streams(vm.StreamTypeID{StreamType: vm.CPUStreamType, Interpret: vm.Compute})
		for ii, stream := range cpuStreams {
			y, x := demoIDBase+int64(2*ii), demoIDBase+int64(2*ii+1)
			seqs = axpyDemo(machine, stream.GlobalDeviceID(), dtype, x, y, seqs[len(seqs)-1])
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()
	must.M(machine.RunUntilIdle(ctx))

	fmt.Printf("%d instructions retired, %d logical objects:\n", machine.NumRetired(), machine.NumLogicalObjects())
	for _, id := range machine.LogicalObjectIDs() {
		lo, _ := machine.LogicalObject(id)
		fmt.Printf("\t%s\n", lo)
		for _, deviceID := range lo.GlobalDeviceIDs() {
			m, _ := lo.MirroredObject(deviceID)
			if blob := m.Blob(); blob != nil {
				fmt.Printf("\t\tdevice #%d: %s\n", deviceID, blob)
			} else if payload := m.Payload(); payload != nil {
				fmt.Printf("\t\tdevice #%d: %v\n", deviceID, payload)
			}
		}
	}
	must.M(machine.Close())
}

// axpyDemo queues the instructions computing y = 2 + alpha*3 on the device, after the instruction after.
// It returns the sequence numbers of the instructions queued.
func axpyDemo(machine *vm.VirtualMachine, deviceID int, dtype dtypes.DType, x, y, after int64) []int64 {
	cpu := device.CPUBackendName
	var seqs []int64
	for _, msg := range []*vm.InstructionMsg{
		vm.NewObjectMsg(vm.Infer, []int64{x, y}, deviceID),
		vm.NewObjectMsg(vm.Compute, []int64{x, y}, deviceID),
		vm.NewBlobMsg(cpu, vm.Infer, deviceID, dtype, *flagElements, x, y),
		vm.NewBlobMsg(cpu, vm.Compute, deviceID, dtype, *flagElements, x, y),
		vm.FillMsg(cpu, vm.Compute, deviceID, 3, x),
		vm.FillMsg(cpu, vm.Compute, deviceID, 2, y),
		vm.AxpyMsg(cpu, vm.Infer, deviceID, *flagAlpha, y, x),
		vm.AxpyMsg(cpu, vm.Compute, deviceID, *flagAlpha, y, x),
	} {
		seqs = append(seqs, machine.Receive(msg.After(after))...)
		after = seqs[len(seqs)-1]
	}
	return seqs
}

// parseIDs parses a comma separated list of logical object ids.
func parseIDs(str string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(str, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "logical object id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
