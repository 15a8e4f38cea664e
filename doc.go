/*
Package graph implements a real-time audio processing graph.

Concept

A graph is a network of units exchanging fixed size blocks of samples and
timestamped control events. Every block is rendered on a single render
goroutine owned by an engine. Rendering never allocates, locks or blocks;
all allocation happens when a unit is configured.

Units

A unit embeds Unit and implements the Processor contract:

    QueryInfo - static description with a globally unique URI;
    Initialize - declares parameters, called exactly once;
    Configure - declares input and output buses for an arrangement;
    Reset - clears internal state;
    Render - fills the connected outputs for one block.

Units are constructed by a Factory which receives a Context and must
attach the new unit to it:

    func newAmp(ctx *graph.Context) graph.Processor {
        a := &amp{}
        a.Attach(ctx)
        return a
    }

Spawn and Registry.Create construct a unit and run EnsureInitialized,
which calls Initialize, configures a stereo arrangement and allocates
one guarded output buffer per output channel.

Buses and connections

Buses are declared during Configure with a label and a speaker
arrangement. An input bus reads from one output bus of another unit if
both have the same number of channels or if a mono output feeds a stereo
input, in which case the single channel is read by both input channels.
Unconnected inputs read silence. Outputs may be redirected to the blocks
of other units to pass signals through without copying.

Chain

Chain holds an ordered sequence of units and wires adjacent ones. If the
main buses of two neighbours differ, the consumer is reconfigured once to
the producer's arrangement. Pairs that still do not fit stay unconnected.

Parameters and notifications

Parameter values live in atomic slots: any goroutine may read them with
PeekParamMT, writes are submitted as jobs to the render goroutine.
Changes of the topology and of observed parameters are relayed to a
single consumer goroutine through CallNotifies, which dispatches named
events to the unit's Proxy.
*/
package graph
