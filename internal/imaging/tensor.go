package imaging

// Layout is the memory order of the image tensor.
type Layout string

const (
	// NHWC is [batch, height, width, channel].
	NHWC Layout = "NHWC"
	// NCHW is [batch, channel, height, width], one plane per channel.
	NCHW Layout = "NCHW"
)

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Elements is the product of the shape dimensions.
func (t Tensor) Elements() int64 {
	if len(t.Shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}
