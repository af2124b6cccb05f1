package isa

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// tomlTarget mirrors the on-disk target definition format.
type tomlTarget struct {
	Name          string   `toml:"name"`
	OperandWidth  int      `toml:"operand-width"`
	MaxExtensions int      `toml:"max-extensions"`
	BigEndian     bool     `toml:"big-endian"`
	ExtendOp      string   `toml:"extend-op"`
	Ops           []tomlOp `toml:"op"`
}

type tomlOp struct {
	Name    string `toml:"name"`
	Code    int    `toml:"code"`
	Operand string `toml:"operand"`
	Final   bool   `toml:"final"`
	Uncond  bool   `toml:"uncond"`
	Pop     int    `toml:"pop"`
	PopBase int    `toml:"pop-base"`
	Push    int    `toml:"push"`
}

// Load reads a TOML target definition from a file.
func Load(path string) (*Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("isa: cannot read %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("isa: %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a TOML target definition.
//
// The format mirrors TargetConfig:
//
//	name = "stackvm"
//	operand-width = 1
//	max-extensions = 3
//	extend-op = "EXTENDED_ARG"
//
//	[[op]]
//	name = "LOAD_CONST"
//	code = 0x30
//	operand = "const"
//	push = 1
//
//	[[op]]
//	name = "JUMP_FORWARD"
//	code = 0x50
//	operand = "jumprel"
//	final = true
//	uncond = true
func Parse(data []byte) (*Target, error) {
	var raw tomlTarget
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	cfg := TargetConfig{
		Name:          raw.Name,
		OperandWidth:  raw.OperandWidth,
		MaxExtensions: raw.MaxExtensions,
		BigEndian:     raw.BigEndian,
		ExtendOp:      raw.ExtendOp,
	}
	for _, op := range raw.Ops {
		kind, err := ParseOperandKind(op.Operand)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", op.Name, err)
		}
		if op.Code < 0 || op.Code > 0xFF {
			return nil, fmt.Errorf("operation %s: code 0x%X out of range", op.Name, op.Code)
		}
		cfg.Ops = append(cfg.Ops, OpSpec{
			Name:    op.Name,
			Code:    byte(op.Code),
			Operand: kind,
			Final:   op.Final,
			Uncond:  op.Uncond,
			Pop:     op.Pop,
			PopBase: op.PopBase,
			Push:    op.Push,
		})
	}
	return NewTarget(cfg)
}
