package types

// Model represents a discoverable depth-estimation model on disk.
type Model struct {
	// Stable identifier for the model.
	// example: midas-v21-small
	ID string `json:"id" example:"midas-v21-small"`
	// Human-friendly name.
	// example: MiDaS v2.1 Small
	Name string `json:"name" example:"MiDaS v2.1 Small"`
	// Absolute path to the model weights on disk.
	// example: /home/user/models/midas-v21-small.onnx
	Path string `json:"path" example:"/home/user/models/midas-v21-small.onnx"`
	// Optional family (e.g., midas, zoedepth, dpt).
	// example: midas
	Family string `json:"family,omitempty" example:"midas"`
	// Square side length of the input tensor the model expects.
	// example: 384
	InputSize int `json:"input_size" example:"384"`
	// Name of the input tensor. Defaults to "input" when unset.
	// example: input
	InputName string `json:"input_name,omitempty" example:"input"`
	// Name of the output tensor. Defaults to "output" when unset.
	// example: output
	OutputName string `json:"output_name,omitempty" example:"output"`
}
