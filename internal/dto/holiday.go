package dto

// ── 节假日模块 DTO ──

// CreateHolidayRequest 新增节假日请求
type CreateHolidayRequest struct {
	Date string `json:"date" binding:"required"` // "2024-10-01"
	Name string `json:"name" binding:"required,max=100"`
}

// ImportHolidayICSRequest 从 ICS 日历导入节假日请求
// 二选一：url 远程获取，或 content 直接提交 ICS 文本
type ImportHolidayICSRequest struct {
	URL     string `json:"url"     binding:"omitempty,url"`
	Content string `json:"content" binding:"omitempty"`
}

// HolidayResponse 节假日响应
type HolidayResponse struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name"`
}

// ImportHolidayICSResponse 导入结果
type ImportHolidayICSResponse struct {
	Imported int               `json:"imported"`
	List     []HolidayResponse `json:"list"`
}
