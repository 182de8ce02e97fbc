package cpu

// instruction pairs a decoded opcode's addressing mode with the function
// that resolves operands for that mode and performs the operation. The
// 256-entry table lives in its own file as a dedicated dispatch table,
// collapsed from a per-tick switch to a single-call-per-instruction form.
type instruction struct {
	name string
	mode mode
	exec func(c *Chip, m mode)
}

// opcodes is the legal 6502 opcode table. Anything not present here decodes
// as an UnknownOpcode; illegal/undocumented opcodes are not supported.
var opcodes = map[uint8]instruction{
	0x69: {"ADC", modeImmediate, execADC}, 0x65: {"ADC", modeZeroPage, execADC},
	0x75: {"ADC", modeZeroPageX, execADC}, 0x6D: {"ADC", modeAbsolute, execADC},
	0x7D: {"ADC", modeAbsoluteX, execADC}, 0x79: {"ADC", modeAbsoluteY, execADC},
	0x61: {"ADC", modeIndirectX, execADC}, 0x71: {"ADC", modeIndirectY, execADC},

	0x29: {"AND", modeImmediate, execAND}, 0x25: {"AND", modeZeroPage, execAND},
	0x35: {"AND", modeZeroPageX, execAND}, 0x2D: {"AND", modeAbsolute, execAND},
	0x3D: {"AND", modeAbsoluteX, execAND}, 0x39: {"AND", modeAbsoluteY, execAND},
	0x21: {"AND", modeIndirectX, execAND}, 0x31: {"AND", modeIndirectY, execAND},

	0x0A: {"ASL", modeAccumulator, execASL}, 0x06: {"ASL", modeZeroPage, execASL},
	0x16: {"ASL", modeZeroPageX, execASL}, 0x0E: {"ASL", modeAbsolute, execASL},
	0x1E: {"ASL", modeAbsoluteX, execASL},

	0x90: {"BCC", modeRelative, execBCC}, 0xB0: {"BCS", modeRelative, execBCS},
	0xF0: {"BEQ", modeRelative, execBEQ}, 0x30: {"BMI", modeRelative, execBMI},
	0xD0: {"BNE", modeRelative, execBNE}, 0x10: {"BPL", modeRelative, execBPL},
	0x50: {"BVC", modeRelative, execBVC}, 0x70: {"BVS", modeRelative, execBVS},

	0x24: {"BIT", modeZeroPage, execBIT}, 0x2C: {"BIT", modeAbsolute, execBIT},

	0x00: {"BRK", modeImplicit, execBRK},

	0x18: {"CLC", modeImplicit, execCLC}, 0xD8: {"CLD", modeImplicit, execCLD},
	0x58: {"CLI", modeImplicit, execCLI}, 0xB8: {"CLV", modeImplicit, execCLV},
	0x38: {"SEC", modeImplicit, execSEC}, 0xF8: {"SED", modeImplicit, execSED},
	0x78: {"SEI", modeImplicit, execSEI},

	0xC9: {"CMP", modeImmediate, execCMP}, 0xC5: {"CMP", modeZeroPage, execCMP},
	0xD5: {"CMP", modeZeroPageX, execCMP}, 0xCD: {"CMP", modeAbsolute, execCMP},
	0xDD: {"CMP", modeAbsoluteX, execCMP}, 0xD9: {"CMP", modeAbsoluteY, execCMP},
	0xC1: {"CMP", modeIndirectX, execCMP}, 0xD1: {"CMP", modeIndirectY, execCMP},

	0xE0: {"CPX", modeImmediate, execCPX}, 0xE4: {"CPX", modeZeroPage, execCPX},
	0xEC: {"CPX", modeAbsolute, execCPX},
	0xC0: {"CPY", modeImmediate, execCPY}, 0xC4: {"CPY", modeZeroPage, execCPY},
	0xCC: {"CPY", modeAbsolute, execCPY},

	0xC6: {"DEC", modeZeroPage, execDEC}, 0xD6: {"DEC", modeZeroPageX, execDEC},
	0xCE: {"DEC", modeAbsolute, execDEC}, 0xDE: {"DEC", modeAbsoluteX, execDEC},
	0xCA: {"DEX", modeImplicit, execDEX}, 0x88: {"DEY", modeImplicit, execDEY},

	0x49: {"EOR", modeImmediate, execEOR}, 0x45: {"EOR", modeZeroPage, execEOR},
	0x55: {"EOR", modeZeroPageX, execEOR}, 0x4D: {"EOR", modeAbsolute, execEOR},
	0x5D: {"EOR", modeAbsoluteX, execEOR}, 0x59: {"EOR", modeAbsoluteY, execEOR},
	0x41: {"EOR", modeIndirectX, execEOR}, 0x51: {"EOR", modeIndirectY, execEOR},

	0xE6: {"INC", modeZeroPage, execINC}, 0xF6: {"INC", modeZeroPageX, execINC},
	0xEE: {"INC", modeAbsolute, execINC}, 0xFE: {"INC", modeAbsoluteX, execINC},
	0xE8: {"INX", modeImplicit, execINX}, 0xC8: {"INY", modeImplicit, execINY},

	0x4C: {"JMP", modeAbsolute, execJMP}, 0x6C: {"JMP", modeIndirect, execJMP},
	0x20: {"JSR", modeAbsolute, execJSR},

	0xA9: {"LDA", modeImmediate, execLDA}, 0xA5: {"LDA", modeZeroPage, execLDA},
	0xB5: {"LDA", modeZeroPageX, execLDA}, 0xAD: {"LDA", modeAbsolute, execLDA},
	0xBD: {"LDA", modeAbsoluteX, execLDA}, 0xB9: {"LDA", modeAbsoluteY, execLDA},
	0xA1: {"LDA", modeIndirectX, execLDA}, 0xB1: {"LDA", modeIndirectY, execLDA},

	0xA2: {"LDX", modeImmediate, execLDX}, 0xA6: {"LDX", modeZeroPage, execLDX},
	0xB6: {"LDX", modeZeroPageY, execLDX}, 0xAE: {"LDX", modeAbsolute, execLDX},
	0xBE: {"LDX", modeAbsoluteY, execLDX},

	0xA0: {"LDY", modeImmediate, execLDY}, 0xA4: {"LDY", modeZeroPage, execLDY},
	0xB4: {"LDY", modeZeroPageX, execLDY}, 0xAC: {"LDY", modeAbsolute, execLDY},
	0xBC: {"LDY", modeAbsoluteX, execLDY},

	0x4A: {"LSR", modeAccumulator, execLSR}, 0x46: {"LSR", modeZeroPage, execLSR},
	0x56: {"LSR", modeZeroPageX, execLSR}, 0x4E: {"LSR", modeAbsolute, execLSR},
	0x5E: {"LSR", modeAbsoluteX, execLSR},

	0xEA: {"NOP", modeImplicit, execNOP},

	0x09: {"ORA", modeImmediate, execORA}, 0x05: {"ORA", modeZeroPage, execORA},
	0x15: {"ORA", modeZeroPageX, execORA}, 0x0D: {"ORA", modeAbsolute, execORA},
	0x1D: {"ORA", modeAbsoluteX, execORA}, 0x19: {"ORA", modeAbsoluteY, execORA},
	0x01: {"ORA", modeIndirectX, execORA}, 0x11: {"ORA", modeIndirectY, execORA},

	0x48: {"PHA", modeImplicit, execPHA}, 0x08: {"PHP", modeImplicit, execPHP},
	0x68: {"PLA", modeImplicit, execPLA}, 0x28: {"PLP", modeImplicit, execPLP},

	0x2A: {"ROL", modeAccumulator, execROL}, 0x26: {"ROL", modeZeroPage, execROL},
	0x36: {"ROL", modeZeroPageX, execROL}, 0x2E: {"ROL", modeAbsolute, execROL},
	0x3E: {"ROL", modeAbsoluteX, execROL},

	0x6A: {"ROR", modeAccumulator, execROR}, 0x66: {"ROR", modeZeroPage, execROR},
	0x76: {"ROR", modeZeroPageX, execROR}, 0x6E: {"ROR", modeAbsolute, execROR},
	0x7E: {"ROR", modeAbsoluteX, execROR},

	0x40: {"RTI", modeImplicit, execRTI}, 0x60: {"RTS", modeImplicit, execRTS},

	0xE9: {"SBC", modeImmediate, execSBC}, 0xE5: {"SBC", modeZeroPage, execSBC},
	0xF5: {"SBC", modeZeroPageX, execSBC}, 0xED: {"SBC", modeAbsolute, execSBC},
	0xFD: {"SBC", modeAbsoluteX, execSBC}, 0xF9: {"SBC", modeAbsoluteY, execSBC},
	0xE1: {"SBC", modeIndirectX, execSBC}, 0xF1: {"SBC", modeIndirectY, execSBC},

	0x85: {"STA", modeZeroPage, execSTA}, 0x95: {"STA", modeZeroPageX, execSTA},
	0x8D: {"STA", modeAbsolute, execSTA}, 0x9D: {"STA", modeAbsoluteX, execSTA},
	0x99: {"STA", modeAbsoluteY, execSTA}, 0x81: {"STA", modeIndirectX, execSTA},
	0x91: {"STA", modeIndirectY, execSTA},

	0x86: {"STX", modeZeroPage, execSTX}, 0x96: {"STX", modeZeroPageY, execSTX},
	0x8E: {"STX", modeAbsolute, execSTX},
	0x84: {"STY", modeZeroPage, execSTY}, 0x94: {"STY", modeZeroPageX, execSTY},
	0x8C: {"STY", modeAbsolute, execSTY},

	0xAA: {"TAX", modeImplicit, execTAX}, 0xA8: {"TAY", modeImplicit, execTAY},
	0xBA: {"TSX", modeImplicit, execTSX}, 0x8A: {"TXA", modeImplicit, execTXA},
	0x9A: {"TXS", modeImplicit, execTXS}, 0x98: {"TYA", modeImplicit, execTYA},
}

func execADC(c *Chip, m mode) {
	op := c.resolve(m)
	c.adc(op.val)
}

// adc implements both binary and decimal-mode addition. Decimal mode leaves
// N and V undefined on real hardware; this implementation clears both and
// sets Z from the decimal result.
func (c *Chip) adc(val uint8) {
	carry := c.P & PCarry
	if c.P&PDecimal != 0 {
		lo := (c.A & 0x0F) + (val & 0x0F) + carry
		if lo >= 0x0A {
			lo = ((lo + 0x06) & 0x0F) + 0x10
		}
		sum := uint16(c.A&0xF0) + uint16(val&0xF0) + uint16(lo)
		if sum >= 0xA0 {
			sum += 0x60
		}
		c.carryCheck(sum)
		c.P &^= PNegative | POverflow
		c.zeroCheck(uint8(sum & 0xFF))
		c.A = uint8(sum & 0xFF)
		return
	}
	sum := uint16(c.A) + uint16(val) + uint16(carry)
	c.overflowCheck(c.A, val, uint8(sum))
	c.carryCheck(sum)
	c.loadRegister(&c.A, uint8(sum))
}

func execSBC(c *Chip, m mode) {
	op := c.resolve(m)
	carry := c.P & PCarry
	if c.P&PDecimal != 0 {
		lo := int8(c.A&0x0F) - int8(op.val&0x0F) + int8(carry) - 1
		if lo < 0 {
			lo = ((lo - 0x06) & 0x0F) - 0x10
		}
		sum := int16(c.A&0xF0) - int16(op.val&0xF0) + int16(lo)
		if sum < 0 {
			sum -= 0x60
		}
		res := uint8(sum & 0xFF)
		bin := c.A + ^op.val + carry
		c.overflowCheck(c.A, ^op.val, bin)
		c.P &^= PNegative | POverflow
		c.carryCheck(uint16(c.A) + uint16(^op.val) + uint16(carry))
		c.zeroCheck(bin)
		c.A = res
		return
	}
	c.adc(^op.val)
}

func execAND(c *Chip, m mode) {
	op := c.resolve(m)
	c.loadRegister(&c.A, c.A&op.val)
}

func execORA(c *Chip, m mode) {
	op := c.resolve(m)
	c.loadRegister(&c.A, c.A|op.val)
}

func execEOR(c *Chip, m mode) {
	op := c.resolve(m)
	c.loadRegister(&c.A, c.A^op.val)
}

func execASL(c *Chip, m mode) {
	op := c.resolve(m)
	c.carryCheck(uint16(op.val) << 1)
	res := op.val << 1
	c.zeroCheck(res)
	c.negativeCheck(res)
	c.store(op, res)
}

func execLSR(c *Chip, m mode) {
	op := c.resolve(m)
	c.carryCheck(uint16(op.val&0x01) << 8)
	res := op.val >> 1
	c.zeroCheck(res)
	c.negativeCheck(res)
	c.store(op, res)
}

func execROL(c *Chip, m mode) {
	op := c.resolve(m)
	carry := c.P & PCarry
	c.carryCheck(uint16(op.val) << 1)
	res := (op.val << 1) | carry
	c.zeroCheck(res)
	c.negativeCheck(res)
	c.store(op, res)
}

func execROR(c *Chip, m mode) {
	op := c.resolve(m)
	carry := (c.P & PCarry) << 7
	c.carryCheck(uint16(op.val&0x01) << 8)
	res := (op.val >> 1) | carry
	c.zeroCheck(res)
	c.negativeCheck(res)
	c.store(op, res)
}

func execBIT(c *Chip, m mode) {
	op := c.resolve(m)
	c.zeroCheck(c.A & op.val)
	c.negativeCheck(op.val)
	c.P &^= POverflow
	if op.val&POverflow != 0 {
		c.P |= POverflow
	}
}

func branchIf(c *Chip, taken bool) {
	disp := c.resolve(modeRelative).val
	if taken {
		c.PC += uint16(int16(int8(disp)))
	}
}

func execBCC(c *Chip, m mode) { branchIf(c, c.P&PCarry == 0) }
func execBCS(c *Chip, m mode) { branchIf(c, c.P&PCarry != 0) }
func execBEQ(c *Chip, m mode) { branchIf(c, c.P&PZero != 0) }
func execBNE(c *Chip, m mode) { branchIf(c, c.P&PZero == 0) }
func execBMI(c *Chip, m mode) { branchIf(c, c.P&PNegative != 0) }
func execBPL(c *Chip, m mode) { branchIf(c, c.P&PNegative == 0) }
func execBVC(c *Chip, m mode) { branchIf(c, c.P&POverflow == 0) }
func execBVS(c *Chip, m mode) { branchIf(c, c.P&POverflow != 0) }

// execBRK implements BRK: PC+2 before pushing, status pushed with B=1 and
// bit 5 = 1, PC loaded from the IRQ vector, I set.
func execBRK(c *Chip, m mode) {
	c.PC++ // BRK's second byte (a padding/signature byte) is skipped.
	c.runInterrupt(IRQVector, true)
}

func execRTI(c *Chip, m mode) {
	c.P = c.popStack()
	c.P |= PS1
	c.P &^= PBreak
	c.PC = c.PopReturnAddr()
}

func execRTS(c *Chip, m mode) {
	c.PC = c.PopReturnAddr() + 1
}

func execJMP(c *Chip, m mode) {
	op := c.resolveAddr(m)
	c.PC = op.addr
}

func execJSR(c *Chip, m mode) {
	target := c.readAddr16(c.PC)
	ret := c.PC + 1 // Points at the last byte of the JSR operand.
	c.pushStack(uint8(ret >> 8))
	c.pushStack(uint8(ret & 0xFF))
	c.PC = target
}

func execCLC(c *Chip, m mode) { c.P &^= PCarry }
func execSEC(c *Chip, m mode) { c.P |= PCarry }
func execCLD(c *Chip, m mode) { c.P &^= PDecimal }
func execSED(c *Chip, m mode) { c.P |= PDecimal }
func execCLI(c *Chip, m mode) { c.P &^= PInterrupt }
func execSEI(c *Chip, m mode) { c.P |= PInterrupt }
func execCLV(c *Chip, m mode) { c.P &^= POverflow }

func (c *Chip) compare(reg, val uint8) {
	c.zeroCheck(reg - val)
	c.negativeCheck(reg - val)
	c.carryCheck(uint16(reg) + uint16(^val) + 1)
}

func execCMP(c *Chip, m mode) { op := c.resolve(m); c.compare(c.A, op.val) }
func execCPX(c *Chip, m mode) { op := c.resolve(m); c.compare(c.X, op.val) }
func execCPY(c *Chip, m mode) { op := c.resolve(m); c.compare(c.Y, op.val) }

func (c *Chip) storeWithFlags(op operand, val uint8) {
	c.zeroCheck(val)
	c.negativeCheck(val)
	c.store(op, val)
}

func execDEC(c *Chip, m mode) { op := c.resolve(m); c.storeWithFlags(op, op.val-1) }
func execINC(c *Chip, m mode) { op := c.resolve(m); c.storeWithFlags(op, op.val+1) }
func execDEX(c *Chip, m mode) { c.loadRegister(&c.X, c.X-1) }
func execINX(c *Chip, m mode) { c.loadRegister(&c.X, c.X+1) }
func execDEY(c *Chip, m mode) { c.loadRegister(&c.Y, c.Y-1) }
func execINY(c *Chip, m mode) { c.loadRegister(&c.Y, c.Y+1) }

func execLDA(c *Chip, m mode) { op := c.resolve(m); c.loadRegister(&c.A, op.val) }
func execLDX(c *Chip, m mode) { op := c.resolve(m); c.loadRegister(&c.X, op.val) }
func execLDY(c *Chip, m mode) { op := c.resolve(m); c.loadRegister(&c.Y, op.val) }

func execSTA(c *Chip, m mode) { op := c.resolveAddr(m); c.store(op, c.A) }
func execSTX(c *Chip, m mode) { op := c.resolveAddr(m); c.store(op, c.X) }
func execSTY(c *Chip, m mode) { op := c.resolveAddr(m); c.store(op, c.Y) }

func execTAX(c *Chip, m mode) { c.loadRegister(&c.X, c.A) }
func execTAY(c *Chip, m mode) { c.loadRegister(&c.Y, c.A) }
func execTXA(c *Chip, m mode) { c.loadRegister(&c.A, c.X) }
func execTYA(c *Chip, m mode) { c.loadRegister(&c.A, c.Y) }
func execTSX(c *Chip, m mode) { c.loadRegister(&c.X, c.S) }
func execTXS(c *Chip, m mode) { c.S = c.X }

func execPHA(c *Chip, m mode) { c.pushStack(c.A) }
func execPHP(c *Chip, m mode) { c.pushStack(c.P | PS1 | PBreak) }
func execPLA(c *Chip, m mode) { c.loadRegister(&c.A, c.popStack()) }
func execPLP(c *Chip, m mode) {
	c.P = c.popStack()
	c.P |= PS1
	c.P &^= PBreak
}

func execNOP(c *Chip, m mode) {}
