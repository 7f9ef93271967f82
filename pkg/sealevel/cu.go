package sealevel

const (
	CUInvokeUnits                      = 1000
	CUCreateProgramAddressUnits        = 1500
	CUSystemProgramDefaultComputeUnits = 150
	CUSyscallBaseCost                  = 100
	CUSha256BaseCost                   = 85
	CUSha256ByteCost                   = 1
)
