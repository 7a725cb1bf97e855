package service

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// chartFile 是席位文件的结构：
//
//	seats:
//	  - code: RSM_NORTH
//	    name: Regional Sales Manager - North
//	    position: RSM
//	    manager: BU_HEAD_01
//	    email: rsm.north@dms.vn
type chartFile struct {
	Seats []ChartSeat `yaml:"seats"`
}

// LoadChartSeats 从 YAML 文件读取席位列表。
func LoadChartSeats(path string) ([]ChartSeat, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chart file: %w", err)
	}

	var f chartFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse chart file %s: %w", path, err)
	}
	if len(f.Seats) == 0 {
		return nil, fmt.Errorf("chart file %s: %w: no seats", path, ErrInvalidInput)
	}
	return f.Seats, nil
}

// DefaultChartSeats 是默认的管理层骨架：CEO -> BU_HEAD -> 两个区域经理，均为空缺席位，
// 等待后续按账号同步或手工关联邮箱。
func DefaultChartSeats() []ChartSeat {
	return []ChartSeat{
		{Code: "CEO_01", Name: "Chief Executive Officer", PositionCode: PositionCEO},
		{Code: "BU_HEAD_01", Name: "Business Unit Head", PositionCode: PositionBUHead, ManagerCode: "CEO_01"},
		{Code: "RSM_NORTH", Name: "Regional Sales Manager - North", PositionCode: PositionRSM, ManagerCode: "BU_HEAD_01"},
		{Code: "RSM_SOUTH", Name: "Regional Sales Manager - South", PositionCode: PositionRSM, ManagerCode: "BU_HEAD_01"},
	}
}
