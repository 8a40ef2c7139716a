package models

import (
	"time"

	"gorm.io/datatypes"
)

type SimpleModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Project struct {
	SimpleModel
	Name        string `gorm:"size:50;not null" json:"name"`
	Version     string `gorm:"size:50" json:"version"`
	Type        string `gorm:"size:50" json:"type"`
	Description string `gorm:"size:1024" json:"description"`

	Groups   []GroupFirst     `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	APIs     []ApiDefinition  `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Dynamics []ProjectDynamic `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
}

// String is the label used on exported documents.
func (p Project) String() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + " " + p.Version
}

type GroupFirst struct {
	SimpleModel
	ProjectID    uint          `gorm:"not null;index" json:"projectId"`
	Name         string        `gorm:"size:50;not null" json:"name"`
	SecondGroups []GroupSecond `gorm:"foreignKey:GroupFirstID;constraint:OnDelete:CASCADE" json:"secondGroup"`
}

func (GroupFirst) TableName() string {
	return "api_groups_first"
}

type GroupSecond struct {
	SimpleModel
	GroupFirstID uint   `gorm:"not null;index" json:"firstGroupId"`
	Name         string `gorm:"size:50;not null" json:"name"`
}

func (GroupSecond) TableName() string {
	return "api_groups_second"
}

// ApiDefinition keeps its group references as bare columns: deleting a group
// leaves them dangling instead of cascading or failing.
type ApiDefinition struct {
	SimpleModel
	ProjectID            uint   `gorm:"not null;uniqueIndex:idx_api_project_name" json:"projectId"`
	GroupFirstID         *uint  `gorm:"index" json:"firstGroupId"`
	GroupSecondID        *uint  `gorm:"index" json:"secondGroupId"`
	Name                 string `gorm:"size:50;not null;uniqueIndex:idx_api_project_name" json:"name"`
	HTTPType             string `gorm:"size:50;not null" json:"httpType"`
	RequestType          string `gorm:"size:50;not null" json:"requestType"`
	APIAddress           string `gorm:"size:1024;not null" json:"apiAddress"`
	RequestParameterType string `gorm:"size:50;not null" json:"requestParameterType"`
	Status               bool   `json:"status"`
	MockStatus           bool   `json:"mockStatus"`
	MockCode             string `gorm:"type:text" json:"code"`
	Description          string `gorm:"size:1024" json:"description"`
	UserUpdate           uint   `json:"userUpdate"`

	Headers      []ApiHeader        `gorm:"foreignKey:ApiID;constraint:OnDelete:CASCADE" json:"headers"`
	Parameters   []ApiParameter     `gorm:"foreignKey:ApiID;constraint:OnDelete:CASCADE" json:"requestParameter"`
	ParameterRaw *ApiParameterRaw   `gorm:"foreignKey:ApiID;constraint:OnDelete:CASCADE" json:"requestParameterRaw,omitempty"`
	Responses    []ApiResponseField `gorm:"foreignKey:ApiID;constraint:OnDelete:CASCADE" json:"response"`

	RequestHistories   []RequestHistory   `gorm:"foreignKey:ApiID;constraint:OnDelete:CASCADE" json:"-"`
	OperationHistories []OperationHistory `gorm:"foreignKey:ApiID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ApiDefinition) TableName() string {
	return "apis"
}

type ApiHeader struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	ApiID uint   `gorm:"not null;index" json:"-"`
	Name  string `gorm:"size:1024;not null" json:"name"`
	Value string `gorm:"size:1024" json:"value"`
}

type ApiParameter struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ApiID       uint   `gorm:"not null;index" json:"-"`
	Name        string `gorm:"size:1024;not null" json:"name"`
	Value       string `gorm:"size:1024" json:"value"`
	Required    bool   `json:"required"`
	Restrict    string `gorm:"size:1024" json:"restrict"`
	Type        string `gorm:"size:50" json:"_type"`
	Description string `gorm:"size:1024" json:"description"`
}

type ApiParameterRaw struct {
	ID    uint           `gorm:"primaryKey" json:"id"`
	ApiID uint           `gorm:"not null;uniqueIndex" json:"-"`
	Data  datatypes.JSON `json:"data"`
}

type ApiResponseField struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ApiID       uint   `gorm:"not null;index" json:"-"`
	Name        string `gorm:"size:1024;not null" json:"name"`
	Value       string `gorm:"size:1024" json:"value"`
	Required    bool   `json:"required"`
	Type        string `gorm:"size:50" json:"_type"`
	Description string `gorm:"size:1024" json:"description"`
}

func (ApiResponseField) TableName() string {
	return "api_responses"
}

type RequestHistory struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ApiID          uint      `gorm:"not null;index" json:"apiId"`
	RequestType    string    `gorm:"size:50" json:"requestType"`
	RequestAddress string    `gorm:"size:1024" json:"requestAddress"`
	HTTPCode       string    `gorm:"size:50" json:"httpCode"`
	RequestTime    time.Time `gorm:"autoCreateTime;index" json:"requestTime"`
}

type OperationHistory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ApiID       uint      `gorm:"not null;index" json:"apiId"`
	UserID      uint      `json:"user"`
	Description string    `gorm:"size:1024" json:"description"`
	Time        time.Time `gorm:"autoCreateTime;index" json:"time"`
}

// ProjectDynamic is the project wide activity feed.
type ProjectDynamic struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ProjectID       uint      `gorm:"not null;index" json:"projectId"`
	Type            string    `gorm:"size:50" json:"type"`
	OperationObject string    `gorm:"size:50" json:"operationObject"`
	UserID          uint      `json:"user"`
	Description     string    `gorm:"size:1024" json:"description"`
	Time            time.Time `gorm:"autoCreateTime;index" json:"time"`
}

// All lists every table in migration order.
func All() []any {
	return []any{
		&Project{},
		&GroupFirst{},
		&GroupSecond{},
		&ApiDefinition{},
		&ApiHeader{},
		&ApiParameter{},
		&ApiParameterRaw{},
		&ApiResponseField{},
		&RequestHistory{},
		&OperationHistory{},
		&ProjectDynamic{},
	}
}
