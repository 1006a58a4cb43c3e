package net

import (
	"fmt"
	"io"
)

// Summary writes a table of the layers, their output shapes and
// parameter counts.
func (n *Network) Summary(w io.Writer) {
	fmt.Fprintln(w, "Model: feed-forward")
	fmt.Fprintln(w, "_________________________________________________________________")
	fmt.Fprintf(w, "%-25s %-20s %-10s\n", "Layer (type)", "Output Shape", "Param #")
	fmt.Fprintln(w, "=================================================================")

	for i, l := range n.layers {
		p := n.set.Layers[i]
		name := fmt.Sprintf("dense_%d (%s)", i, l.Activation().Name())
		fmt.Fprintf(w, "%-25s %-20s %-10d\n", name, fmt.Sprintf("(%d)", l.OutSize()), p.In()*p.Out()+p.Out())
	}
	fmt.Fprintln(w, "=================================================================")
	fmt.Fprintf(w, "Total params: %d\n", n.set.Count())
}
